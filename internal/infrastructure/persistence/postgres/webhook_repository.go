package postgres

import (
	"context"
	"fmt"
)

type WebhookEventRepository struct {
	q Executor
}

// Record claims an external event id. Processing the same id twice reports
// alreadyProcessed so webhook handling stays a no-op on duplicate delivery.
// Runs inside the handler's transaction: a rollback releases the claim and
// lets the gateway's retry reprocess the event.
func (r *WebhookEventRepository) Record(ctx context.Context, externalEventID, eventType string) (bool, error) {
	query := `
		INSERT INTO webhook_events (external_event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (external_event_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, externalEventID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}
