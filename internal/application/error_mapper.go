package application

import (
	"context"
	"net/http"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
)

// ToHTTPStatus maps an error to the status code the boundary answers with.
// Business errors are always 4xx; anything outside the closed vocabulary
// collapses to 500.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	if domainErr, ok := domain.IsDomainError(err); ok {
		switch domainErr.Code {
		case domain.ErrCodeRoomUnavailable,
			domain.ErrCodeCouponAlreadyUsed,
			domain.ErrCodeDuplicateEntry,
			domain.ErrCodeInvalidTransition:
			return http.StatusConflict
		case domain.ErrCodeInsufficientCredits,
			domain.ErrCodeCouponInvalid,
			domain.ErrCodeCouponRequiresCash,
			domain.ErrCodePaymentBelowMinimum,
			domain.ErrCodeInvalidInterval,
			domain.ErrCodeMissingRequiredField:
			return http.StatusBadRequest
		case domain.ErrCodeEmailNotVerified:
			return http.StatusForbidden
		case domain.ErrCodeNotFound:
			return http.StatusNotFound
		case domain.ErrCodeRateLimited:
			return http.StatusTooManyRequests
		case domain.ErrCodePaymentCreationFailed:
			// The booking was compensated; the client may retry the slot.
			return http.StatusPaymentRequired
		}
	}

	if err == context.DeadlineExceeded || err == context.Canceled {
		return http.StatusRequestTimeout
	}

	return http.StatusInternalServerError
}

// ToErrorCode returns the stable machine-readable code for API responses.
func ToErrorCode(err error) string {
	if domainErr, ok := domain.IsDomainError(err); ok {
		return domainErr.Code
	}
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}
	return ErrCodeInternal
}

// SafeMessage returns the user-facing message. Internal failures never leak
// their detail to callers.
func SafeMessage(err error) string {
	if domainErr, ok := domain.IsDomainError(err); ok {
		return domainErr.Message
	}
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Message
	}
	return "An internal error occurred"
}
