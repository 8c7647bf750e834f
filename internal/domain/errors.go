package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business rule violation from the closed vocabulary.
// Anything that is not a DomainError is treated as internal and never shown
// to callers.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Business error codes
const (
	ErrCodeRoomUnavailable       = "ROOM_UNAVAILABLE"
	ErrCodeInsufficientCredits   = "INSUFFICIENT_CREDITS"
	ErrCodeCouponInvalid         = "COUPON_INVALID"
	ErrCodeCouponAlreadyUsed     = "COUPON_ALREADY_USED"
	ErrCodeCouponRequiresCash    = "COUPON_REQUIRES_CASH_PAYMENT"
	ErrCodePaymentBelowMinimum   = "PAYMENT_BELOW_MINIMUM"
	ErrCodePaymentCreationFailed = "PAYMENT_CREATION_FAILED"
	ErrCodeEmailNotVerified      = "EMAIL_NOT_VERIFIED"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeDuplicateEntry        = "DUPLICATE_ENTRY"
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeInvalidInterval       = "INVALID_INTERVAL"
	ErrCodeMissingRequiredField  = "MISSING_REQUIRED_FIELD"
)

func NewRoomUnavailableError(roomID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeRoomUnavailable,
		Message: fmt.Sprintf("room %s is not available for the requested time", roomID),
	}
}

func NewInsufficientCreditsError(available, required int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInsufficientCredits,
		Message: fmt.Sprintf("insufficient credits: available %d, required %d", available, required),
	}
}

func NewCouponInvalidError(code, reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponInvalid,
		Message: fmt.Sprintf("coupon %s is not valid: %s", code, reason),
	}
}

func NewCouponAlreadyUsedError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponAlreadyUsed,
		Message: fmt.Sprintf("coupon %s has already been used", code),
	}
}

func NewCouponRequiresCashError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponRequiresCash,
		Message: fmt.Sprintf("coupon %s requires a cash payment and cannot fully fund a booking with credits", code),
	}
}

func NewPaymentBelowMinimumError(amount, minimum int64) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentBelowMinimum,
		Message: fmt.Sprintf("amount %d is below the gateway minimum of %d", amount, minimum),
	}
}

func NewPaymentCreationFailedError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentCreationFailed,
		Message: "payment could not be created, booking was cancelled and credits restored",
		Err:     err,
	}
}

func NewEmailNotVerifiedError() *DomainError {
	return &DomainError{
		Code:    ErrCodeEmailNotVerified,
		Message: "email address must be verified before booking",
	}
}

func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

func NewDuplicateEntryError(what string) *DomainError {
	return &DomainError{
		Code:    ErrCodeDuplicateEntry,
		Message: fmt.Sprintf("%s already exists", what),
	}
}

func NewInvalidTransitionError(from, to BookingStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", from, to),
	}
}

func NewInvalidIntervalError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidInterval,
		Message: fmt.Sprintf("invalid booking interval: %s", reason),
	}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsDomainError extracts a DomainError if present
func IsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	ok := errors.As(err, &domainErr)
	return domainErr, ok
}
