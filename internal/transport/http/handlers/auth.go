package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/middleware"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/response"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// AuthHandler exposes login, logout and password endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds the authentication routes. Login carries no rate-limit
// middleware of its own; the auth tier is enforced by AuthService.Login.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	authn := middleware.Authenticate(h.auth)

	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.POST("/change-password",
		middleware.RateLimit(h.auth.RateLimiter(), domain.RateLimitTierStrict),
		authn,
		h.ChangePassword,
	)
}

// Login handles POST /api/v1/auth/login. A correct password for an admin with
// two-factor enabled but no code yields 200 with requires_two_factor and no token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginRequest{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
		Client:        middleware.ClientInfo(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.RequiresTwoFactor {
		c.JSON(http.StatusOK, LoginResponse{
			Success:           true,
			RequiresTwoFactor: true,
			Message:           "two-factor code required",
		})
		return
	}

	expiresAt := result.ExpiresAt.UTC()
	session := newSessionPayload(*result.Session)
	admin := newAdminPayload(*result.Principal)
	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: &expiresAt,
		Session:   &session,
		Admin:     &admin,
	})
}

// Logout handles POST /api/v1/auth/logout. A second logout with the same token
// fails with 401.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		response.Error(c, usecase.ErrInvalidToken)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "logged out"})
}

// ChangePassword handles POST /api/v1/auth/change-password. Every session of
// the caller, including the current one, ends on success.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	authCtx, ok := middleware.GetAuthContext(c)
	if !ok {
		response.Error(c, usecase.ErrInvalidToken)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	revoked, err := h.auth.ChangePassword(c.Request.Context(), *authCtx, req.CurrentPassword, req.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RevokedSessionsResponse{
		Success:         true,
		Message:         "password changed; please log in again",
		RevokedSessions: revoked,
	})
}
