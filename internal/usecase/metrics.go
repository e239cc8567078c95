package usecase

import "github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"

// LoginOutcomeSuccess labels successful logins; failures are labelled by their FailureKind.
const LoginOutcomeSuccess = "success"

// AuthMetrics receives security-relevant counters from the services.
type AuthMetrics interface {
	ObserveLogin(outcome string)
	ObserveRateLimited(tier domain.RateLimitTier)
	ObserveLockout()
	ObserveSessionsCreated(n int)
	ObserveSessionsRevoked(reason string, n int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveLogin(string)                     {}
func (nopMetrics) ObserveRateLimited(domain.RateLimitTier) {}
func (nopMetrics) ObserveLockout()                         {}
func (nopMetrics) ObserveSessionsCreated(int)              {}
func (nopMetrics) ObserveSessionsRevoked(string, int)      {}

func metricsOrNop(m AuthMetrics) AuthMetrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
