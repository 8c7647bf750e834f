package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/interfaces/rest"
)

type paymentWebhookRequest struct {
	EventID   string `json:"eventId" validate:"required"`
	EventType string `json:"eventType" validate:"required"`
	ChargeID  string `json:"chargeId" validate:"required"`
}

// PaymentWebhook receives gateway callbacks. Duplicate deliveries get a 200
// so the gateway stops redelivering; real failures get a 5xx so it retries.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req paymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, r, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		rest.WriteError(w, r, application.NewInvalidInputError(err), h.logger)
		return
	}

	if err := h.webhookService.ApplyPaymentWebhook(r.Context(), req.EventID, req.ChargeID, req.EventType); err != nil {
		rest.WriteError(w, r, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}
