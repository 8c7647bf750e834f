package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/interfaces/rest"
)

// RunCleanup triggers one expiry batch. Exposed for the platform cron;
// guarded by a shared secret rather than user auth.
func (h *Handlers) RunCleanup(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Cron-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.cronSecret)) != 1 {
		rest.WriteError(w, r, application.NewForbiddenError(), h.logger)
		return
	}

	report, err := h.cleanupService.RunExpiryCleanup(r.Context())
	if err != nil {
		rest.WriteError(w, r, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, report)
}
