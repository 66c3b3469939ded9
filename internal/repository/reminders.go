package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
)

// ReminderRepository persists guest reminders.
type ReminderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReminderRepository creates a new reminder repository.
func NewReminderRepository(db *sql.DB, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{db: db, logger: logger}
}

func (r *ReminderRepository) Insert(ctx context.Context, rem models.Reminder) (models.Reminder, error) {
	query := `
		INSERT INTO reminders (guest_id, text, due_at, done)
		VALUES ($1, $2, $3, $4)
		RETURNING reminder_id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, rem.GuestID, rem.Text, rem.DueAt, rem.Done).
		Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		return models.Reminder{}, fmt.Errorf("failed to insert reminder: %w", err)
	}
	return rem, nil
}

func (r *ReminderRepository) Update(ctx context.Context, rem models.Reminder) error {
	query := `
		UPDATE reminders
		SET text = $2, due_at = $3, done = $4
		WHERE reminder_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, rem.ID, rem.Text, rem.DueAt, rem.Done); err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM reminders WHERE reminder_id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

func (r *ReminderRepository) ListAll(ctx context.Context) ([]models.Reminder, error) {
	query := `
		SELECT reminder_id, guest_id, text, due_at, done, created_at
		FROM reminders
		ORDER BY due_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var rem models.Reminder
		if err := rows.Scan(&rem.ID, &rem.GuestID, &rem.Text, &rem.DueAt, &rem.Done, &rem.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}
