package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
)

// AuthMetricsOptions configures the authentication collectors.
type AuthMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// AuthMetrics records login outcomes, throttling and session churn.
type AuthMetrics struct {
	Logins          *prometheus.CounterVec
	RateLimited     *prometheus.CounterVec
	Lockouts        prometheus.Counter
	SessionsCreated prometheus.Counter
	SessionsRevoked *prometheus.CounterVec
}

// NewAuthMetrics constructs the collectors and registers them, reusing collectors
// that are already registered under the same name.
func NewAuthMetrics(opts AuthMetricsOptions) (*AuthMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "adminauth"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logins, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	limited, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests denied by the rate limiter partitioned by tier.",
	}, []string{"tier"}))
	if err != nil {
		return nil, err
	}
	lockouts, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Lockout keys that crossed the failure threshold.",
	}))
	if err != nil {
		return nil, err
	}
	created, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_created_total",
		Help:      "Admin sessions created.",
	}))
	if err != nil {
		return nil, err
	}
	revoked, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Admin sessions revoked partitioned by reason.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		Logins:          logins,
		RateLimited:     limited,
		Lockouts:        lockouts,
		SessionsCreated: created,
		SessionsRevoked: revoked,
	}, nil
}

// RegisterActiveSessions exposes a gauge backed by count, typically an in-memory store's Len.
func RegisterActiveSessions(reg prometheus.Registerer, namespace string, count func() int) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "adminauth"
	}
	_, err := register(reg, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held by the process-local store.",
	}, func() float64 { return float64(count()) }))
	return err
}

func (m *AuthMetrics) ObserveLogin(outcome string) {
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveRateLimited(tier domain.RateLimitTier) {
	m.RateLimited.WithLabelValues(string(tier)).Inc()
}

func (m *AuthMetrics) ObserveLockout() {
	m.Lockouts.Inc()
}

func (m *AuthMetrics) ObserveSessionsCreated(n int) {
	m.SessionsCreated.Add(float64(n))
}

func (m *AuthMetrics) ObserveSessionsRevoked(reason string, n int) {
	if n <= 0 {
		return
	}
	m.SessionsRevoked.WithLabelValues(reason).Add(float64(n))
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return collector, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}
