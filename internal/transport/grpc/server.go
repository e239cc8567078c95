package transportgrpc

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/grpc/interceptors"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/grpc/sessionv1"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// ServerDependencies encapsulates services required by the gRPC server layer.
type ServerDependencies struct {
	AuthService    *usecase.AuthService
	Logger         *zap.Logger
	Metrics        *grpcinterceptors.GRPCMetrics
	TracerProvider trace.TracerProvider
	RequestsPerSec float64
	Burst          int
	PublicMethods  []string // methods that don't require authentication
}

// Server bundles the gRPC server with its health service.
type Server struct {
	*grpc.Server
	Health *health.Server
}

// NewServer wires gRPC services with authentication enforced through interceptors.
func NewServer(deps ServerDependencies) (*Server, error) {
	if deps.AuthService == nil {
		return nil, fmt.Errorf("auth service is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	public := append([]string{healthpb.Health_Check_FullMethodName}, deps.PublicMethods...)

	authInterceptor := grpcinterceptors.NewAuthInterceptor(deps.AuthService, grpcinterceptors.AuthOptions{
		Logger:       logger,
		AllowMethods: public,
	})
	limiter := grpcinterceptors.NewRateLimitInterceptor(deps.RequestsPerSec, deps.Burst, logger)

	unaryInterceptors := []grpc.UnaryServerInterceptor{
		deps.Metrics.UnaryServerInterceptor(),
		limiter.UnaryServerInterceptor(),
		authInterceptor.UnaryServerInterceptor(),
	}

	server := grpc.NewServer(
		grpcinterceptors.TracingServerOption(grpcinterceptors.TracingOptions{TracerProvider: deps.TracerProvider}),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
	)

	sessionv1.RegisterSessionServiceServer(server, NewSessionServer(deps.AuthService, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(sessionv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	// Register reflection service for tools like Postman, grpcurl, etc.
	reflection.Register(server)

	return &Server{Server: server, Health: healthServer}, nil
}

// GracefulStop marks every service as not serving before draining calls.
func (s *Server) GracefulStop() {
	s.Health.Shutdown()
	s.Server.GracefulStop()
}
