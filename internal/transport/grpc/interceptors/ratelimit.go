package interceptors

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RateLimitInterceptor sheds unary calls above a process-wide token bucket.
// Per-caller limits stay with the HTTP tiers; this only protects the process.
type RateLimitInterceptor struct {
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitInterceptor returns nil when requestsPerSec is not positive.
func NewRateLimitInterceptor(requestsPerSec float64, burst int, logger *zap.Logger) *RateLimitInterceptor {
	if requestsPerSec <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitInterceptor{limiter: rate.NewLimiter(rate.Limit(requestsPerSec), burst), logger: logger}
}

// UnaryServerInterceptor rejects calls with ResourceExhausted once the bucket is empty.
func (ri *RateLimitInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if ri == nil {
			return handler(ctx, req)
		}
		if !ri.limiter.Allow() {
			ri.logger.Warn("gRPC request shed", zap.String("method", info.FullMethod))
			return nil, status.Error(codes.ResourceExhausted, "RateLimited")
		}
		return handler(ctx, req)
	}
}
