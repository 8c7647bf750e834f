package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniciusGavioli/arthemi-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type RoomRepository struct {
	q Executor
}

func (r *RoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	query := `SELECT id, name, tier, hourly_rate, shift_rate FROM rooms WHERE id = $1`

	var room domain.Room
	err := r.q.QueryRow(ctx, query, id).Scan(
		&room.ID, &room.Name, &room.Tier, &room.HourlyRate, &room.ShiftRate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("room", id)
		}
		return nil, fmt.Errorf("failed to scan room: %w", err)
	}
	return &room, nil
}
