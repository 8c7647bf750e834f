package middleware

import (
	"net/http"

	"github.com/ViniciusGavioli/arthemi-booking/internal/interfaces/rest"
	"github.com/google/uuid"
)

// RequestID tags every request with an id, honoring one supplied by the
// caller so ids correlate across services.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.New().String()
			}

			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(rest.WithRequestID(r.Context(), id)))
		})
	}
}
