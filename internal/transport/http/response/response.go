package response

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// traceIDKey mirrors the gin context key set by middleware.EnrichContext.
const traceIDKey = "trace_id"

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	RetryAfter *int   `json:"retry_after,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}

type failureMapping struct {
	status  int
	message string
}

// failureStatus maps each failure kind to its HTTP status and caller-facing
// message. Messages never confirm whether an account exists.
var failureStatus = map[domain.FailureKind]failureMapping{
	domain.FailureInvalidCredentials:      {http.StatusUnauthorized, "invalid email or password"},
	domain.FailureAccountLocked:           {http.StatusLocked, "too many failed attempts, try again later"},
	domain.FailureTwoFactorRequired:       {http.StatusUnauthorized, "two-factor code required"},
	domain.FailureInvalidTwoFactorCode:    {http.StatusUnauthorized, "invalid two-factor code"},
	domain.FailureRateLimited:             {http.StatusTooManyRequests, "too many requests, try again later"},
	domain.FailureInvalidToken:            {http.StatusUnauthorized, "invalid or expired token"},
	domain.FailureSessionExpired:          {http.StatusUnauthorized, "session expired"},
	domain.FailureAccountDeactivated:      {http.StatusForbidden, "account deactivated"},
	domain.FailureInsufficientPermissions: {http.StatusForbidden, "insufficient permissions"},
	domain.FailureInsufficientRoleLevel:   {http.StatusForbidden, "insufficient role level"},
	domain.FailureValidationError:         {http.StatusBadRequest, "invalid request"},
}

var internalFailure = failureMapping{http.StatusInternalServerError, "internal server error"}

// StatusFor returns the HTTP status used for err.
func StatusFor(err error) int {
	if m, ok := failureStatus[usecase.FailureKindOf(err)]; ok {
		return m.status
	}
	return internalFailure.status
}

// Error aborts the request with the envelope for err. Unclassified errors are
// attached to the gin context for the access log and answered with a generic 500.
func Error(c *gin.Context, err error) {
	kind := usecase.FailureKindOf(err)
	mapping, ok := failureStatus[kind]
	if !ok {
		kind = domain.FailureInternal
		mapping = internalFailure
		_ = c.Error(err)
	}

	body := ErrorEnvelope{
		Error:     string(kind),
		Message:   mapping.message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   c.GetString(traceIDKey),
	}

	var validation *usecase.ValidationError
	if errors.As(err, &validation) && validation.Message != "" {
		body.Message = validation.Error()
	}

	if retry, ok := retryAfterSeconds(err); ok {
		body.RetryAfter = &retry
		c.Header("Retry-After", strconv.Itoa(retry))
	}

	c.AbortWithStatusJSON(mapping.status, body)
}

// BodyTooLarge aborts with a 413 validation failure.
func BodyTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorEnvelope{
		Error:     string(domain.FailureValidationError),
		Message:   "request body too large",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   c.GetString(traceIDKey),
	})
}

// BindError answers a failed request decode: 413 when the body limit was hit,
// 400 otherwise.
func BindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		BodyTooLarge(c)
		return
	}
	Error(c, &usecase.ValidationError{Message: "malformed request body"})
}

func retryAfterSeconds(err error) (int, bool) {
	var limited *usecase.RateLimitExceededError
	if errors.As(err, &limited) {
		return limited.RetryAfterSeconds(), true
	}
	var locked *usecase.AccountLockedError
	if errors.As(err, &locked) {
		return locked.RetryAfterSeconds(), true
	}
	return 0, false
}
