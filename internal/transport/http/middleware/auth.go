package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/response"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

const authContextKey = "auth_context"

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate resolves the bearer token to a live session and an active admin.
func Authenticate(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			response.Error(c, usecase.ErrInvalidToken)
			return
		}

		authCtx, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(authContextKey, authCtx)
		c.Set(AdminUserIDKey, authCtx.Principal.AdminUserID)
		GetRequestContext(c).AdminUserID = authCtx.Principal.AdminUserID

		c.Next()
	}
}

// RequirePermission rejects callers whose role does not grant permission.
// It must run after Authenticate.
func RequirePermission(guard *usecase.AuthorizationGuard, permission string) gin.HandlerFunc {
	return authorize(guard, usecase.Permission(permission))
}

// RequireRoleLevel rejects callers whose role level is below minLevel.
// It must run after Authenticate.
func RequireRoleLevel(guard *usecase.AuthorizationGuard, minLevel int) gin.HandlerFunc {
	return authorize(guard, usecase.RoleLevel(minLevel))
}

func authorize(guard *usecase.AuthorizationGuard, requirement usecase.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx, ok := GetAuthContext(c)
		if !ok {
			response.Error(c, usecase.ErrInvalidToken)
			return
		}
		if err := guard.Check(c.Request.Context(), authCtx.Principal, requirement); err != nil {
			response.Error(c, err)
			return
		}
		c.Next()
	}
}

// GetAuthContext returns the caller resolved by Authenticate.
func GetAuthContext(c *gin.Context) (*usecase.AuthContext, bool) {
	val, exists := c.Get(authContextKey)
	if !exists {
		return nil, false
	}
	authCtx, ok := val.(*usecase.AuthContext)
	return authCtx, ok && authCtx != nil
}
