package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
)

// GuestRepository persists guest records.
type GuestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGuestRepository creates a new guest repository.
func NewGuestRepository(db *sql.DB, logger *zap.Logger) *GuestRepository {
	return &GuestRepository{db: db, logger: logger}
}

func (r *GuestRepository) Insert(ctx context.Context, g models.Guest) (models.Guest, error) {
	query := `
		INSERT INTO guests (first_name, last_name, notes)
		VALUES ($1, $2, $3)
		RETURNING guest_id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, g.FirstName, g.LastName, nullIfEmpty(g.Notes)).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return models.Guest{}, fmt.Errorf("failed to insert guest: %w", err)
	}
	return g, nil
}

func (r *GuestRepository) Update(ctx context.Context, g models.Guest) error {
	query := `
		UPDATE guests
		SET first_name = $2, last_name = $3, notes = $4
		WHERE guest_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, g.ID, g.FirstName, g.LastName, nullIfEmpty(g.Notes)); err != nil {
		return fmt.Errorf("failed to update guest: %w", err)
	}
	return nil
}

func (r *GuestRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM guests WHERE guest_id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	return nil
}

func (r *GuestRepository) ListAll(ctx context.Context) ([]models.Guest, error) {
	query := `
		SELECT guest_id, first_name, last_name, COALESCE(notes, ''), created_at
		FROM guests
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	var guests []models.Guest
	for rows.Next() {
		var g models.Guest
		if err := rows.Scan(&g.ID, &g.FirstName, &g.LastName, &g.Notes, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, g)
	}
	return guests, rows.Err()
}
