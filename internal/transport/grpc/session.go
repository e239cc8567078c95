package transportgrpc

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcinterceptors "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/grpc/interceptors"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/grpc/sessionv1"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// SessionServer implements the admin.v1.SessionService gRPC contract.
type SessionServer struct {
	sessionv1.UnimplementedSessionServiceServer
	auth   *usecase.AuthService
	logger *zap.Logger
}

// NewSessionServer constructs a gRPC session server.
func NewSessionServer(auth *usecase.AuthService, logger *zap.Logger) *SessionServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionServer{auth: auth, logger: logger}
}

// Introspect describes the caller authenticated by the interceptor.
func (s *SessionServer) Introspect(ctx context.Context, _ *sessionv1.IntrospectRequest) (*sessionv1.IntrospectResponse, error) {
	auth, ok := grpcinterceptors.AuthContextFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "InvalidToken")
	}

	role, err := s.auth.Guard().ResolveRole(ctx, auth.Principal)
	if err != nil {
		return nil, grpcinterceptors.Status(err)
	}

	permissions := append([]string(nil), role.Permissions...)
	sort.Strings(permissions)

	return &sessionv1.IntrospectResponse{
		AdminUserID: auth.Principal.AdminUserID,
		UserID:      auth.Principal.UserID,
		Email:       auth.Principal.Email,
		Role: sessionv1.Role{
			ID:          role.ID,
			Name:        role.Name,
			Level:       role.Level,
			Permissions: permissions,
		},
		Session: sessionv1.Session{
			ID:        auth.Session.ID,
			IP:        auth.Session.Client.IP,
			UserAgent: auth.Session.Client.UserAgent,
			CreatedAt: auth.Session.CreatedAt,
			ExpiresAt: auth.Session.ExpiresAt,
		},
	}, nil
}

// Logout ends the caller's session and revokes the presented token.
func (s *SessionServer) Logout(ctx context.Context, _ *sessionv1.LogoutRequest) (*sessionv1.LogoutResponse, error) {
	token, ok := grpcinterceptors.TokenFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "InvalidToken")
	}
	if err := s.auth.Logout(ctx, token); err != nil {
		return nil, grpcinterceptors.Status(err)
	}
	return &sessionv1.LogoutResponse{Message: "logged out"}, nil
}
