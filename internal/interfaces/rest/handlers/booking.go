package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/ViniciusGavioli/arthemi-booking/internal/interfaces/rest"
)

type createBookingRequest struct {
	RoomID        string    `json:"roomId" validate:"required"`
	StartTime     time.Time `json:"startTime" validate:"required"`
	EndTime       time.Time `json:"endTime" validate:"required"`
	CouponCode    *string   `json:"couponCode"`
	PaymentMethod string    `json:"paymentMethod" validate:"omitempty,oneof=CHECKOUT PIX"`
}

type createBookingResponse struct {
	BookingID   string                     `json:"bookingId"`
	Status      string                     `json:"status"`
	CreditsUsed []domain.CreditConsumption `json:"creditsUsed"`
	AmountToPay int64                      `json:"amountToPay"`
	PaymentURL  *string                    `json:"paymentUrl,omitempty"`
	PixCode     *string                    `json:"pixCode,omitempty"`
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	auth, err := h.authFromRequest(r)
	if err != nil {
		rest.WriteError(w, r, err, h.logger)
		return
	}
	if !auth.EmailVerified {
		rest.WriteError(w, r, domain.NewEmailNotVerifiedError(), h.logger)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, r, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		rest.WriteError(w, r, application.NewInvalidInputError(err), h.logger)
		return
	}

	result, err := h.bookingService.CreateBookingWithCredit(
		r.Context(),
		auth.UserID, req.RoomID,
		req.StartTime, req.EndTime,
		req.CouponCode,
		domain.PaymentMethod(req.PaymentMethod),
		auth.Email,
	)
	if err != nil {
		rest.WriteError(w, r, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, createBookingResponse{
		BookingID:   result.BookingID,
		Status:      string(result.Status),
		CreditsUsed: result.CreditsUsed,
		AmountToPay: result.AmountToPay,
		PaymentURL:  result.PaymentURL,
		PixCode:     result.PixCode,
	})
}

type cancelBookingResponse struct {
	AlreadyCancelled bool  `json:"alreadyCancelled"`
	CreditsRestored  int64 `json:"creditsRestored"`
	CouponRestored   bool  `json:"couponRestored"`
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	auth, err := h.authFromRequest(r)
	if err != nil {
		rest.WriteError(w, r, err, h.logger)
		return
	}

	bookingID := r.PathValue("id")
	if bookingID == "" {
		rest.WriteError(w, r, domain.NewMissingRequiredFieldError("booking id"), h.logger)
		return
	}

	result, err := h.cancelService.CancelPendingBooking(r.Context(), auth.UserID, bookingID)
	if err != nil {
		rest.WriteError(w, r, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, cancelBookingResponse{
		AlreadyCancelled: result.AlreadyCancelled,
		CreditsRestored:  result.CreditsRestored,
		CouponRestored:   result.CouponRestored,
	})
}
