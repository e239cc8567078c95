package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/middleware"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/response"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// SessionHandler exposes the caller's session state.
type SessionHandler struct {
	auth *usecase.AuthService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(auth *usecase.AuthService) *SessionHandler {
	return &SessionHandler{auth: auth}
}

// RegisterRoutes binds the session routes under the auth group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	authn := middleware.Authenticate(h.auth)

	r.GET("/session", h.Introspect)
	r.GET("/sessions", authn, h.ListSessions)
	r.POST("/logout-all", authn, h.LogoutAll)
}

// Introspect handles GET /api/v1/auth/session.
func (h *SessionHandler) Introspect(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		response.Error(c, usecase.ErrInvalidToken)
		return
	}

	info, err := h.auth.Introspect(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	permissions := append([]string(nil), info.Role.Permissions...)
	sort.Strings(permissions)

	session := newSessionPayload(info.Session)
	session.Current = true
	c.JSON(http.StatusOK, IntrospectionResponse{
		Success:     true,
		Admin:       newAdminPayload(info.Principal),
		Role:        RolePayload{ID: info.Role.ID, Name: info.Role.Name, Level: info.Role.Level},
		Permissions: permissions,
		Session:     session,
	})
}

// ListSessions handles GET /api/v1/auth/sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	authCtx, ok := middleware.GetAuthContext(c)
	if !ok {
		response.Error(c, usecase.ErrInvalidToken)
		return
	}

	sessions, err := h.auth.ListSessions(c.Request.Context(), *authCtx)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := make([]SessionPayload, 0, len(sessions))
	for _, s := range sessions {
		item := newSessionPayload(s)
		item.Current = s.ID == authCtx.Session.ID
		payload = append(payload, item)
	}

	c.JSON(http.StatusOK, SessionListResponse{Success: true, Sessions: payload})
}

// LogoutAll handles POST /api/v1/auth/logout-all.
func (h *SessionHandler) LogoutAll(c *gin.Context) {
	authCtx, ok := middleware.GetAuthContext(c)
	if !ok {
		response.Error(c, usecase.ErrInvalidToken)
		return
	}

	revoked, err := h.auth.LogoutAll(c.Request.Context(), *authCtx)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, RevokedSessionsResponse{
		Success:         true,
		Message:         "all sessions ended",
		RevokedSessions: revoked,
	})
}
