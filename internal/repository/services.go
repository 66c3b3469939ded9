package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
)

// ServiceRepository persists rows of the shared services table. Every service
// kind (shower, laundry, bicycle, haircut, holiday) lives in this one table,
// distinguished by the kind column; per-kind stores use ForKind.
type ServiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewServiceRepository creates a new service repository.
func NewServiceRepository(db *sql.DB, logger *zap.Logger) *ServiceRepository {
	return &ServiceRepository{db: db, logger: logger}
}

func (r *ServiceRepository) Insert(ctx context.Context, s models.Service) (models.Service, error) {
	query := `
		INSERT INTO services (guest_id, kind, status, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING service_id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		s.GuestID, string(s.Kind), string(s.Status), nullIfEmpty(s.Notes),
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.Service{}, fmt.Errorf("failed to insert service: %w", err)
	}
	return s, nil
}

func (r *ServiceRepository) Update(ctx context.Context, s models.Service) error {
	query := `
		UPDATE services
		SET status = $2, notes = $3, updated_at = NOW()
		WHERE service_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, s.ID, string(s.Status), nullIfEmpty(s.Notes)); err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	return nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM services WHERE service_id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	return nil
}

// UpdateStatusBulk sets the status on all given ids in one statement.
func (r *ServiceRepository) UpdateStatusBulk(ctx context.Context, ids []string, status models.ServiceStatus) error {
	query := `
		UPDATE services
		SET status = $1, updated_at = NOW()
		WHERE service_id = ANY($2)
	`

	if _, err := r.db.ExecContext(ctx, query, string(status), pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to bulk update service status: %w", err)
	}
	return nil
}

// ListByKind returns all rows of one service kind.
func (r *ServiceRepository) ListByKind(ctx context.Context, kind models.ServiceKind) ([]models.Service, error) {
	query := `
		SELECT service_id, guest_id, kind, status, COALESCE(notes, ''), created_at, updated_at
		FROM services
		WHERE kind = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var s models.Service
		var k, status string
		if err := rows.Scan(&s.ID, &s.GuestID, &k, &status, &s.Notes, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		s.Kind = models.ServiceKind(k)
		s.Status = models.ServiceStatus(status)
		services = append(services, s)
	}
	return services, rows.Err()
}

// ForKind scopes the repository to one service kind so it satisfies a
// per-kind store's persistence contract (ListAll lists only that kind).
func (r *ServiceRepository) ForKind(kind models.ServiceKind) *KindScopedServices {
	return &KindScopedServices{repo: r, kind: kind}
}

// KindScopedServices is a ServiceRepository bound to one kind.
type KindScopedServices struct {
	repo *ServiceRepository
	kind models.ServiceKind
}

func (k *KindScopedServices) Insert(ctx context.Context, s models.Service) (models.Service, error) {
	s.Kind = k.kind
	return k.repo.Insert(ctx, s)
}

func (k *KindScopedServices) Update(ctx context.Context, s models.Service) error {
	return k.repo.Update(ctx, s)
}

func (k *KindScopedServices) Delete(ctx context.Context, id string) error {
	return k.repo.Delete(ctx, id)
}

func (k *KindScopedServices) ListAll(ctx context.Context) ([]models.Service, error) {
	return k.repo.ListByKind(ctx, k.kind)
}
