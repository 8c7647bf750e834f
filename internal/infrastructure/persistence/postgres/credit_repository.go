package postgres

import (
	"context"
	"fmt"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const creditColumns = `
	id, user_id, room_id, tier, usage_type,
	amount, remaining_amount, status, expires_at, created_at
`

type CreditRepository struct {
	q Executor
}

func (r *CreditRepository) FindActiveByUser(ctx context.Context, userID string) ([]domain.Credit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE user_id = $1 AND remaining_amount > 0 AND expires_at > now()
		ORDER BY expires_at ASC, id ASC
	`
	return r.queryCredits(ctx, query, userID)
}

// FindActiveByUserForUpdate locks the user's grants so concurrent debits
// against the same balance serialize instead of losing updates.
func (r *CreditRepository) FindActiveByUserForUpdate(ctx context.Context, userID string) ([]domain.Credit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE user_id = $1 AND remaining_amount > 0 AND expires_at > now()
		ORDER BY expires_at ASC, id ASC
		FOR UPDATE
	`
	return r.queryCredits(ctx, query, userID)
}

func (r *CreditRepository) FindByIDsForUpdate(ctx context.Context, ids []string) ([]domain.Credit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE id = ANY($1)
		ORDER BY id ASC
		FOR UPDATE
	`
	return r.queryCredits(ctx, query, ids)
}

// ApplyDebits consumes value from grants. The guard on remaining_amount is a
// second line of defense behind the row locks; hitting it means the plan was
// computed against a stale balance.
func (r *CreditRepository) ApplyDebits(ctx context.Context, debits []domain.CreditDebit) error {
	query := `
		UPDATE credits
		SET remaining_amount = remaining_amount - $2,
			status = CASE WHEN remaining_amount - $2 <= 0 THEN 'USED' ELSE status END
		WHERE id = $1 AND remaining_amount >= $2
	`

	for _, d := range debits {
		tag, err := r.q.Exec(ctx, query, d.CreditID, d.Amount)
		if err != nil {
			return fmt.Errorf("debit credit %s: %w", d.CreditID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.NewInsufficientCreditsError(0, d.Amount)
		}
	}
	return nil
}

// ApplyRestores gives value back, clamped at the original grant so balance
// is never fabricated.
func (r *CreditRepository) ApplyRestores(ctx context.Context, restores []domain.CreditRestore) error {
	query := `
		UPDATE credits
		SET remaining_amount = LEAST(amount, remaining_amount + $2),
			status = 'CONFIRMED'
		WHERE id = $1
	`

	for _, re := range restores {
		if _, err := r.q.Exec(ctx, query, re.CreditID, re.Amount); err != nil {
			return fmt.Errorf("restore credit %s: %w", re.CreditID, err)
		}
	}
	return nil
}

func (r *CreditRepository) queryCredits(ctx context.Context, query string, arg any) ([]domain.Credit, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query credits: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Credit, error) {
		var c domain.Credit
		err := row.Scan(
			&c.ID, &c.UserID, &c.RoomID, &c.Tier, &c.UsageType,
			&c.Amount, &c.RemainingAmount, &c.Status, &c.ExpiresAt, &c.CreatedAt,
		)
		return c, err
	})
}
