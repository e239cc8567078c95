package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/middleware"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/response"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// AdminHandler exposes operator endpoints over other admins.
type AdminHandler struct {
	auth        *usecase.AuthService
	manageLevel int
}

// NewAdminHandler constructs AdminHandler. manageLevel is the minimum role
// level allowed to deactivate admins.
func NewAdminHandler(auth *usecase.AuthService, manageLevel int) *AdminHandler {
	return &AdminHandler{auth: auth, manageLevel: manageLevel}
}

// RegisterRoutes binds the admin routes. The group must already run Authenticate.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	guard := h.auth.Guard()

	r.POST("/users/:id/deactivate",
		middleware.RateLimit(h.auth.RateLimiter(), domain.RateLimitTierStrict),
		middleware.RequirePermission(guard, domain.PermissionAdminManage),
		middleware.RequireRoleLevel(guard, h.manageLevel),
		h.Deactivate,
	)
	r.DELETE("/lockouts/:key",
		middleware.RequirePermission(guard, domain.PermissionSecurityManage),
		h.ClearLockout,
	)
}

// Deactivate handles POST /api/v1/admin/users/:id/deactivate.
func (h *AdminHandler) Deactivate(c *gin.Context) {
	authCtx, ok := middleware.GetAuthContext(c)
	if !ok {
		response.Error(c, usecase.ErrInvalidToken)
		return
	}

	revoked, err := h.auth.DeactivateAdmin(c.Request.Context(), *authCtx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RevokedSessionsResponse{
		Success:         true,
		Message:         "admin deactivated",
		RevokedSessions: revoked,
	})
}

// ClearLockout handles DELETE /api/v1/admin/lockouts/:key, where key is
// "email:<address>" or "ip:<address>".
func (h *AdminHandler) ClearLockout(c *gin.Context) {
	authCtx, ok := middleware.GetAuthContext(c)
	if !ok {
		response.Error(c, usecase.ErrInvalidToken)
		return
	}

	if err := h.auth.ClearLockout(c.Request.Context(), *authCtx, c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "lockout cleared"})
}
