// Package worker runs background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application/services"
)

// ExpiryWorker periodically reclaims expired PENDING bookings. It shares the
// cleanup service with the authenticated endpoint; the claim step makes
// concurrent runs safe.
type ExpiryWorker struct {
	cleanupService *services.CleanupService
	interval       time.Duration
	logger         *slog.Logger
}

func NewExpiryWorker(
	cleanupService *services.CleanupService,
	interval time.Duration,
	logger *slog.Logger,
) *ExpiryWorker {
	return &ExpiryWorker{
		cleanupService: cleanupService,
		interval:       interval,
		logger:         logger,
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	w.logger.Info("expiry worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.run(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry worker stopping")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *ExpiryWorker) run(ctx context.Context) {
	if _, err := w.cleanupService.RunExpiryCleanup(ctx); err != nil {
		w.logger.Error("expiry cleanup run failed", "error", err)
	}
}
