package interceptors

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

func TestStatus(t *testing.T) {
	if Status(nil) != nil {
		t.Fatalf("nil error must stay nil")
	}

	st, _ := status.FromError(Status(&usecase.RateLimitExceededError{RetryAfter: time.Second}))
	if st.Code() != codes.ResourceExhausted || st.Message() != "RateLimited" {
		t.Fatalf("unexpected status %v", st)
	}

	st, _ = status.FromError(Status(errors.New("pq: password authentication failed")))
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Fatalf("internal cause leaked: %v", st)
	}

	original := status.Error(codes.Canceled, "client went away")
	if Status(original) != original {
		t.Fatalf("existing statuses must pass through")
	}
}
