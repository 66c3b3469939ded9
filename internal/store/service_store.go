package store

import (
	"context"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
)

// ServiceStore is a Store over one kind of the shared services table
// (shower, laundry, bicycle, haircut, holiday), with the batched status
// change the queue screens use.
type ServiceStore struct {
	*Store[models.Service]
	kind models.ServiceKind
	bulk BulkStatusPersistence
}

// NewServiceStore creates a store for one service kind. name doubles as the
// broadcast channel name, as with New.
func NewServiceStore(
	name string,
	kind models.ServiceKind,
	persist Persistence[models.Service],
	bulk BulkStatusPersistence,
	logger *zap.Logger,
	opts Options[models.Service],
) *ServiceStore {
	return &ServiceStore{
		Store: New[models.Service](name, persist, logger, opts),
		kind:  kind,
		bulk:  bulk,
	}
}

// Kind returns the service kind this store holds.
func (s *ServiceStore) Kind() models.ServiceKind { return s.kind }

// BulkStatusChange sets the status on every matching record optimistically
// and issues a single batched remote call. On failure every affected record
// is rolled back to its prior status. Ids with no local record are ignored;
// an empty id list short-circuits to success without a remote call.
func (s *ServiceStore) BulkStatusChange(ctx context.Context, ids []string, status models.ServiceStatus) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	prev := make(map[string]models.ServiceStatus, len(ids))
	matched := make([]string, 0, len(ids))
	changed := make([]models.Service, 0, len(ids))
	for _, id := range ids {
		i := s.indexOfLocked(id)
		if i < 0 {
			continue
		}
		prev[id] = s.records[i].Status
		s.records[i].Status = status
		matched = append(matched, id)
		changed = append(changed, s.records[i])
	}
	if len(matched) == 0 {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	if err := s.bulk.UpdateStatusBulk(ctx, matched, status); err != nil {
		s.mu.Lock()
		for id, st := range prev {
			if i := s.indexOfLocked(id); i >= 0 {
				s.records[i].Status = st
			}
		}
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return &PersistenceError{Store: s.name, Op: "bulk status change", Err: err}
	}

	for _, rec := range changed {
		s.publish(ctx, ActionUpdate, rec)
	}
	return nil
}
