package notification

import (
	"context"
	"log/slog"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
)

// LogSender stands in for the broker in environments without one. Events are
// logged and dropped.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendBookingConfirmation(ctx context.Context, n application.BookingConfirmation) error {
	s.logger.Info("booking confirmation (no broker configured)",
		"booking_id", n.BookingID,
		"user_id", n.UserID,
	)
	return nil
}
