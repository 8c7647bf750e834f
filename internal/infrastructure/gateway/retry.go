package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ViniciusGavioli/arthemi-booking/internal/application"
	"github.com/ViniciusGavioli/arthemi-booking/internal/config"
)

// RetryGatewayClient retries transient provider failures with exponential
// backoff and jitter. Retries lean on the Idempotency-Key header so a retry
// can never double-charge.
type RetryGatewayClient struct {
	inner      application.PaymentGateway
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner application.PaymentGateway, cfg config.RetryConfig) application.PaymentGateway {
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Second,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryGatewayClient) CreateCharge(ctx context.Context, req application.ChargeRequest, idempotencyKey string) (*application.ChargeResponse, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.ChargeResponse, error) {
		return r.inner.CreateCharge(ctx, req, idempotencyKey)
	})
}

func (r *RetryGatewayClient) CancelCharge(ctx context.Context, externalID string) error {
	_, err := retry(r, ctx, func(ctx context.Context) (*struct{}, error) {
		return &struct{}{}, r.inner.CancelCharge(ctx, externalID)
	})
	return err
}

func (r *RetryGatewayClient) GetCharge(ctx context.Context, externalID string) (*application.ChargeStatus, error) {
	return retry(r, ctx, func(ctx context.Context) (*application.ChargeStatus, error) {
		return r.inner.GetCharge(ctx, externalID)
	})
}

func (r *RetryGatewayClient) GetPixCode(ctx context.Context, externalID string) (string, error) {
	code, err := retry(r, ctx, func(ctx context.Context) (*string, error) {
		c, err := r.inner.GetPixCode(ctx, externalID)
		return &c, err
	})
	if err != nil {
		return "", err
	}
	return *code, nil
}

// Generic retry helper
func retry[T any](r *RetryGatewayClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.IsRetryable()
	}
	if err == context.Canceled {
		return false
	}
	// Transport failures and timeouts are worth another attempt.
	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGatewayClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
	return base + jitter
}
