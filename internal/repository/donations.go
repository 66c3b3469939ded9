package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/store"
)

// DonationRepository persists donation records.
type DonationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDonationRepository creates a new donation repository.
func NewDonationRepository(db *sql.DB, logger *zap.Logger) *DonationRepository {
	return &DonationRepository{db: db, logger: logger}
}

func (r *DonationRepository) Insert(ctx context.Context, d models.Donation) (models.Donation, error) {
	query := `
		INSERT INTO donations (guest_id, category, quantity, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING donation_id, received_at
	`

	err := r.db.QueryRowContext(ctx, query,
		nullIfEmpty(d.GuestID),
		d.Category,
		d.Quantity,
		nullIfEmpty(d.Notes),
		nullIfEmpty(d.IdempotencyKey),
	).Scan(&d.ID, &d.ReceivedAt)
	if err != nil {
		if d.IdempotencyKey != "" && isUniqueViolation(err) {
			return models.Donation{}, fmt.Errorf("insert donation %q: %w", d.IdempotencyKey, store.ErrDuplicateKey)
		}
		return models.Donation{}, fmt.Errorf("failed to insert donation: %w", err)
	}
	return d, nil
}

func (r *DonationRepository) Update(ctx context.Context, d models.Donation) error {
	query := `
		UPDATE donations
		SET category = $2, quantity = $3, notes = $4
		WHERE donation_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, d.ID, d.Category, d.Quantity, nullIfEmpty(d.Notes)); err != nil {
		return fmt.Errorf("failed to update donation: %w", err)
	}
	return nil
}

func (r *DonationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM donations WHERE donation_id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete donation: %w", err)
	}
	return nil
}

func (r *DonationRepository) ListAll(ctx context.Context) ([]models.Donation, error) {
	query := `
		SELECT donation_id, COALESCE(guest_id::text, ''), category, quantity,
		       COALESCE(notes, ''), COALESCE(idempotency_key, ''), received_at
		FROM donations
		ORDER BY received_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var donations []models.Donation
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(&d.ID, &d.GuestID, &d.Category, &d.Quantity, &d.Notes, &d.IdempotencyKey, &d.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}
