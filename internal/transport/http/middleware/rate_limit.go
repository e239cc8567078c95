package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/http/response"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

// RateLimit counts the request against tier, keyed by client IP, and answers
// 429 with Retry-After once the tier's window is exhausted. A nil limiter
// disables the check.
func RateLimit(limiter *usecase.RateLimiter, tier domain.RateLimitTier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), tier, c.ClientIP())
		applyRateLimitHeaders(c, decision)
		if err != nil {
			if c.Request.Context().Err() != nil {
				c.AbortWithStatus(http.StatusRequestTimeout)
				return
			}
			response.Error(c, err)
			return
		}

		c.Next()
	}
}

func applyRateLimitHeaders(c *gin.Context, decision usecase.RateDecision) {
	if decision.Limit <= 0 || decision.Degraded {
		return
	}
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	if !decision.ResetAt.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
}
