package store

import (
	"context"

	"hopes-corner-sync/internal/models"
)

// Persistence is the remote backing table for one store. Insert returns the
// canonical persisted row (the backend assigns the durable id), so the store
// never appends optimistically on add.
type Persistence[T models.Record] interface {
	Insert(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, rec T) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]T, error)
}

// BulkStatusPersistence is the batched status update used by service stores.
type BulkStatusPersistence interface {
	UpdateStatusBulk(ctx context.Context, ids []string, status models.ServiceStatus) error
}
