package interceptors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

// GRPCMetricsOptions controls construction of gRPC metrics collectors.
type GRPCMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// GRPCMetrics records unary call counts, latencies and auth rejections.
type GRPCMetrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
	rejections *prometheus.CounterVec
}

// NewGRPCMetrics constructs collectors and registers them with the supplied registerer.
func NewGRPCMetrics(opts GRPCMetricsOptions) (*GRPCMetrics, error) {
	if opts.Namespace == "" {
		opts.Namespace = "adminauth"
	}
	if opts.Subsystem == "" {
		opts.Subsystem = "grpc"
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if len(opts.Buckets) == 0 {
		opts.Buckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5}
	}

	m := &GRPCMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "requests_total",
			Help:      "Unary gRPC calls by service, method and status code.",
		}, []string{"service", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "request_duration_seconds",
			Help:      "Unary gRPC call latency in seconds.",
			Buckets:   opts.Buckets,
		}, []string{"service", "method", "code"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "in_flight_requests",
			Help:      "Unary gRPC calls currently being served.",
		}, []string{"service"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Subsystem: opts.Subsystem,
			Name:      "rejections_total",
			Help:      "Unary gRPC calls refused with an auth or throttling failure kind.",
		}, []string{"method", "failure"}),
	}

	var err error
	if m.requests, err = register(opts.Registerer, m.requests); err != nil {
		return nil, fmt.Errorf("register gRPC requests collector: %w", err)
	}
	if m.duration, err = register(opts.Registerer, m.duration); err != nil {
		return nil, fmt.Errorf("register gRPC duration collector: %w", err)
	}
	if m.inFlight, err = register(opts.Registerer, m.inFlight); err != nil {
		return nil, fmt.Errorf("register gRPC inflight collector: %w", err)
	}
	if m.rejections, err = register(opts.Registerer, m.rejections); err != nil {
		return nil, fmt.Errorf("register gRPC rejections collector: %w", err)
	}
	return m, nil
}

// UnaryServerInterceptor returns a gRPC unary interceptor that records metrics.
func (m *GRPCMetrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if m == nil {
			return handler(ctx, req)
		}

		service, method := splitFullMethod(info.FullMethod)
		start := time.Now()

		gauge := m.inFlight.WithLabelValues(service)
		gauge.Inc()
		defer gauge.Dec()

		resp, err := handler(ctx, req)

		st := status.Convert(err)
		code := st.Code().String()
		m.requests.WithLabelValues(service, method, code).Inc()
		m.duration.WithLabelValues(service, method, code).Observe(time.Since(start).Seconds())
		if kind, ok := rejectionKind(st); ok {
			m.rejections.WithLabelValues(method, kind).Inc()
		}
		return resp, err
	}
}

// rejectionKind recovers the failure kind that Status wrote into the message.
func rejectionKind(st *status.Status) (string, bool) {
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied, codes.ResourceExhausted:
	default:
		return "", false
	}
	kind := domain.FailureKind(st.Message())
	if _, known := failureCodes[kind]; !known {
		return "Unclassified", true
	}
	return string(kind), true
}

func splitFullMethod(full string) (string, string) {
	service, method, ok := strings.Cut(strings.TrimPrefix(full, "/"), "/")
	if service == "" {
		service = "unknown"
	}
	if !ok || method == "" || strings.Contains(method, "/") {
		return service, "unknown"
	}
	return service, method
}

// register returns the already registered collector of the same type when one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return collector, err
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("existing collector has type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}
