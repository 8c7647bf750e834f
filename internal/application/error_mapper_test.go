package application_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"room unavailable", domain.NewRoomUnavailableError("room-1"), http.StatusConflict},
		{"coupon already used", domain.NewCouponAlreadyUsedError("TEN"), http.StatusConflict},
		{"invalid transition", domain.NewInvalidTransitionError(domain.BookingConfirmed, domain.BookingPending), http.StatusConflict},
		{"insufficient credits", domain.NewInsufficientCreditsError(100, 200), http.StatusBadRequest},
		{"coupon invalid", domain.NewCouponInvalidError("TEN", "expired"), http.StatusBadRequest},
		{"coupon requires cash", domain.NewCouponRequiresCashError("TEN"), http.StatusBadRequest},
		{"below minimum", domain.NewPaymentBelowMinimumError(100, 500), http.StatusBadRequest},
		{"invalid interval", domain.NewInvalidIntervalError("start after end"), http.StatusBadRequest},
		{"email not verified", domain.NewEmailNotVerifiedError(), http.StatusForbidden},
		{"not found", domain.NewNotFoundError("booking", "b-1"), http.StatusNotFound},
		{"payment creation failed", domain.NewPaymentCreationFailedError(errors.New("down")), http.StatusPaymentRequired},
		{"unauthorized", application.NewUnauthorizedError(), http.StatusUnauthorized},
		{"forbidden", application.NewForbiddenError(), http.StatusForbidden},
		{"deadline", context.DeadlineExceeded, http.StatusRequestTimeout},
		{"plain error", errors.New("pq: connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, application.ToHTTPStatus(tt.err))
		})
	}
}

func TestToErrorCode(t *testing.T) {
	assert.Equal(t, domain.ErrCodeRoomUnavailable, application.ToErrorCode(domain.NewRoomUnavailableError("room-1")))
	assert.Equal(t, application.ErrCodeInvalidInput, application.ToErrorCode(application.NewInvalidInputError(errors.New("bad json"))))
	assert.Equal(t, application.ErrCodeInternal, application.ToErrorCode(errors.New("anything else")))
}

func TestSafeMessage_NeverLeaksInternals(t *testing.T) {
	internal := errors.New("pq: password authentication failed for user postgres")
	msg := application.SafeMessage(internal)
	assert.Equal(t, "An internal error occurred", msg)
	assert.NotContains(t, msg, "postgres")

	// Business errors keep their message.
	assert.Contains(t, application.SafeMessage(domain.NewRoomUnavailableError("room-1")), "room-1")
}
