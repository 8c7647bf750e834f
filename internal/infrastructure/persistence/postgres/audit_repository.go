package postgres

import (
	"context"
	"encoding/json"
	"fmt"
)

// AuditRepository implements the application's AuditSink on the store.
type AuditRepository struct {
	db *DB
}

func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, action, actorID, targetID string, metadata map[string]string) error {
	query := `
		INSERT INTO audit_log (action, actor_id, target_id, metadata)
		VALUES ($1, $2, $3, $4)
	`

	var meta []byte
	if len(metadata) > 0 {
		var err error
		meta, err = json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	if _, err := r.db.Pool.Exec(ctx, query, action, actorID, targetID, meta); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
