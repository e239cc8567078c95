package interceptors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/core/domain"
	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/usecase"
)

var failureCodes = map[domain.FailureKind]codes.Code{
	domain.FailureInvalidCredentials:      codes.Unauthenticated,
	domain.FailureTwoFactorRequired:       codes.Unauthenticated,
	domain.FailureInvalidTwoFactorCode:    codes.Unauthenticated,
	domain.FailureInvalidToken:            codes.Unauthenticated,
	domain.FailureSessionExpired:          codes.Unauthenticated,
	domain.FailureAccountLocked:           codes.ResourceExhausted,
	domain.FailureRateLimited:             codes.ResourceExhausted,
	domain.FailureAccountDeactivated:      codes.PermissionDenied,
	domain.FailureInsufficientPermissions: codes.PermissionDenied,
	domain.FailureInsufficientRoleLevel:   codes.PermissionDenied,
	domain.FailureValidationError:         codes.InvalidArgument,
}

// Status converts a usecase error into a gRPC status. The message is the
// failure kind; internal errors never expose their cause.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	kind := usecase.FailureKindOf(err)
	code, ok := failureCodes[kind]
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, string(kind))
}
