package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
)

// CleanupConfig carries the expiry knobs.
type CleanupConfig struct {
	// FallbackCeiling bounds the age of PENDING bookings that never got an
	// expiry set.
	FallbackCeiling time.Duration
	BatchSize       int
}

// CleanupService cancels expired PENDING bookings and restores what they
// consumed. Safe to run repeatedly and concurrently with itself: each row is
// claimed with a conditional status update before any restore happens.
type CleanupService struct {
	store        application.Store
	orchestrator *PaymentOrchestrator
	audit        application.AuditSink
	cfg          CleanupConfig
	logger       *slog.Logger

	now func() time.Time
}

func NewCleanupService(
	store application.Store,
	orchestrator *PaymentOrchestrator,
	audit application.AuditSink,
	cfg CleanupConfig,
	logger *slog.Logger,
) *CleanupService {
	return &CleanupService{
		store:        store,
		orchestrator: orchestrator,
		audit:        audit,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

type CleanupReport struct {
	Processed       int `json:"processed"`
	Cancelled       int `json:"cancelled"`
	CouponsRestored int `json:"couponsRestored"`
	Errors          int `json:"errors"`
}

// RunExpiryCleanup processes one batch of expired PENDING bookings. A second
// run over the same set processes zero rows: the claim fails for anything
// already cancelled.
func (s *CleanupService) RunExpiryCleanup(ctx context.Context) (*CleanupReport, error) {
	now := s.now()
	report := &CleanupReport{}

	expired, err := s.store.Repos().Bookings.FindExpiredPending(ctx, now, s.cfg.FallbackCeiling, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	for _, candidate := range expired {
		report.Processed++

		var claimed, couponRestored bool
		err := s.store.WithTransaction(ctx, func(ctx context.Context, tx application.RepositorySet) error {
			var err error
			claimed, err = tx.Bookings.ClaimForCancellation(ctx, candidate.ID, domain.ReasonExpired, domain.CancelSourceSystem)
			if err != nil {
				return err
			}
			if !claimed {
				// A concurrent run or a user cancel got here first.
				return nil
			}

			booking, err := tx.Bookings.FindByID(ctx, candidate.ID)
			if err != nil {
				return err
			}
			_, couponRestored, err = restoreFunds(ctx, tx, booking)
			return err
		})
		if err != nil {
			report.Errors++
			s.logger.Error("expiry cleanup failed for booking",
				"booking_id", candidate.ID,
				"error", err,
			)
			continue
		}
		if !claimed {
			continue
		}

		report.Cancelled++
		if couponRestored {
			report.CouponsRestored++
		}

		s.orchestrator.CancelExternalCharge(ctx, candidate.ID)
	}

	if report.Cancelled > 0 {
		if err := s.audit.Record(ctx, "booking.expiry_cleanup", "system", "", map[string]string{
			"processed": strconv.Itoa(report.Processed),
			"cancelled": strconv.Itoa(report.Cancelled),
		}); err != nil {
			s.logger.Warn("audit record failed", "action", "booking.expiry_cleanup", "error", err)
		}
	}

	s.logger.Info("expiry cleanup finished",
		"processed", report.Processed,
		"cancelled", report.Cancelled,
		"coupons_restored", report.CouponsRestored,
		"errors", report.Errors,
	)

	return report, nil
}
