// Package handlers wires the HTTP routes to the application services.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/application/services"
	"github.com/go-playground/validator"
)

type Handlers struct {
	bookingService *services.BookingService
	cancelService  *services.CancelService
	webhookService *services.WebhookService
	cleanupService *services.CleanupService
	cronSecret     string
	validate       *validator.Validate
	logger         *slog.Logger
}

func NewHandlers(
	bookingService *services.BookingService,
	cancelService *services.CancelService,
	webhookService *services.WebhookService,
	cleanupService *services.CleanupService,
	cronSecret string,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		bookingService: bookingService,
		cancelService:  cancelService,
		webhookService: webhookService,
		cleanupService: cleanupService,
		cronSecret:     cronSecret,
		validate:       validator.New(),
		logger:         logger,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /bookings", h.CreateBooking)
	mux.HandleFunc("DELETE /bookings/{id}", h.CancelBooking)
	mux.HandleFunc("POST /webhooks/payment", h.PaymentWebhook)
	mux.HandleFunc("POST /internal/cleanup", h.RunCleanup)
	mux.HandleFunc("GET /health", h.Health)
}

// authContext is the identity the edge proxy forwards after session
// validation. The service trusts these headers; it never sees credentials.
type authContext struct {
	UserID        string
	Email         string
	EmailVerified bool
}

func (h *Handlers) authFromRequest(r *http.Request) (*authContext, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return nil, application.NewUnauthorizedError()
	}
	return &authContext{
		UserID:        userID,
		Email:         r.Header.Get("X-User-Email"),
		EmailVerified: r.Header.Get("X-Email-Verified") == "true",
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
