package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/store"
)

// MealRepository persists meal records. Inserts carrying an idempotency key
// surface a unique-constraint hit as store.ErrDuplicateKey so the store can
// absorb duplicate bulk entries.
type MealRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMealRepository creates a new meal repository.
func NewMealRepository(db *sql.DB, logger *zap.Logger) *MealRepository {
	return &MealRepository{db: db, logger: logger}
}

func (r *MealRepository) Insert(ctx context.Context, m models.Meal) (models.Meal, error) {
	query := `
		INSERT INTO meals (guest_id, kind, quantity, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING meal_id, served_at
	`

	err := r.db.QueryRowContext(ctx, query,
		nullIfEmpty(m.GuestID),
		string(m.Kind),
		m.Quantity,
		nullIfEmpty(m.Notes),
		nullIfEmpty(m.IdempotencyKey),
	).Scan(&m.ID, &m.ServedAt)
	if err != nil {
		if m.IdempotencyKey != "" && isUniqueViolation(err) {
			return models.Meal{}, fmt.Errorf("insert meal %q: %w", m.IdempotencyKey, store.ErrDuplicateKey)
		}
		return models.Meal{}, fmt.Errorf("failed to insert meal: %w", err)
	}
	return m, nil
}

func (r *MealRepository) Update(ctx context.Context, m models.Meal) error {
	query := `
		UPDATE meals
		SET guest_id = $2, kind = $3, quantity = $4, notes = $5
		WHERE meal_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query,
		m.ID, nullIfEmpty(m.GuestID), string(m.Kind), m.Quantity, nullIfEmpty(m.Notes),
	); err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}
	return nil
}

func (r *MealRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM meals WHERE meal_id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	return nil
}

func (r *MealRepository) ListAll(ctx context.Context) ([]models.Meal, error) {
	query := `
		SELECT meal_id, COALESCE(guest_id::text, ''), kind, quantity,
		       COALESCE(notes, ''), COALESCE(idempotency_key, ''), served_at
		FROM meals
		ORDER BY served_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	var meals []models.Meal
	for rows.Next() {
		var m models.Meal
		var kind string
		if err := rows.Scan(&m.ID, &m.GuestID, &kind, &m.Quantity, &m.Notes, &m.IdempotencyKey, &m.ServedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		m.Kind = models.MealKind(kind)
		meals = append(meals, m)
	}
	return meals, rows.Err()
}
