// Package rest holds the HTTP boundary: response envelopes, error mapping
// and request identity helpers shared by handlers and middleware.
package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type ErrorResponse struct {
	Success   bool              `json:"success"`
	Code      string            `json:"code"`
	Error     string            `json:"error"`
	RequestID string            `json:"requestId,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// WriteError maps domain and service errors to HTTP responses. Internal
// details stay in the log; the body carries only the safe message.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	if statusCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"code", errorCode,
			"error", err,
		)
	}

	response := ErrorResponse{
		Success:   false,
		Code:      errorCode,
		Error:     application.SafeMessage(err),
		RequestID: RequestIDFromContext(r.Context()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
