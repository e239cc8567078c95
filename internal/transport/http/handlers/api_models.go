package handlers

import (
	"time"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"two_factor_code,omitempty"`
}

// ChangePasswordRequest is the body of POST /api/v1/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// LoginResponse is returned for a completed login or a second-factor challenge.
type LoginResponse struct {
	Success           bool            `json:"success"`
	RequiresTwoFactor bool            `json:"requires_two_factor,omitempty"`
	Message           string          `json:"message,omitempty"`
	Token             string          `json:"token,omitempty"`
	TokenType         string          `json:"token_type,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"`
	Session           *SessionPayload `json:"session,omitempty"`
	Admin             *AdminPayload   `json:"admin,omitempty"`
}

// MessageResponse acknowledges an operation without further data.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RevokedSessionsResponse reports how many sessions an operation ended.
type RevokedSessionsResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	RevokedSessions int    `json:"revoked_sessions"`
}

// IntrospectionResponse describes the caller behind a bearer token.
type IntrospectionResponse struct {
	Success     bool           `json:"success"`
	Admin       AdminPayload   `json:"admin"`
	Role        RolePayload    `json:"role"`
	Permissions []string       `json:"permissions"`
	Session     SessionPayload `json:"session"`
}

// SessionListResponse lists the caller's live sessions.
type SessionListResponse struct {
	Success  bool             `json:"success"`
	Sessions []SessionPayload `json:"sessions"`
}

// AdminPayload is the public view of an admin principal.
type AdminPayload struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	RoleID           string `json:"role_id"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

// RolePayload is the public view of a role.
type RolePayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// SessionPayload is the public view of a session.
type SessionPayload struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Current   bool      `json:"current,omitempty"`
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse is returned by the readiness probe.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func newAdminPayload(p domain.Principal) AdminPayload {
	return AdminPayload{
		ID:               p.AdminUserID,
		UserID:           p.UserID,
		Email:            p.Email,
		RoleID:           p.RoleID,
		TwoFactorEnabled: p.TwoFactorEnabled,
	}
}

func newSessionPayload(s domain.Session) SessionPayload {
	return SessionPayload{
		ID:        s.ID,
		IPAddress: s.Client.IP,
		UserAgent: s.Client.UserAgent,
		CreatedAt: s.CreatedAt.UTC(),
		ExpiresAt: s.ExpiresAt.UTC(),
	}
}
