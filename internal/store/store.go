package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
)

// Publisher fans a user-originated mutation out to other front-desk terminals.
// Reconciled (externally sourced) mutations are never re-published.
type Publisher interface {
	Publish(ctx context.Context, channel string, action Action, record any) error
}

// Options carries the optional hooks for a store.
type Options[T models.Record] struct {
	// Publisher, when set, receives every successful user-originated mutation.
	Publisher Publisher
	// Validate, when set, runs before the remote call on Add.
	Validate func(T) error
	// OccurredAt, when set, enables the ForToday selector.
	OccurredAt func(T) time.Time
}

// Store holds one domain's records: an ordered, id-keyed collection with
// optimistic-then-confirm mutations, observer notifications, and an
// idempotent reconciler for externally sourced changes.
type Store[T models.Record] struct {
	name      string
	persist   Persistence[T]
	publisher Publisher
	validate  func(T) error
	occurred  func(T) time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	records []T

	subMu   sync.Mutex
	subs    map[int]func([]T)
	nextSub int
}

// New creates a store. name doubles as the broadcast channel name.
func New[T models.Record](name string, persist Persistence[T], logger *zap.Logger, opts Options[T]) *Store[T] {
	return &Store[T]{
		name:      name,
		persist:   persist,
		publisher: opts.Publisher,
		validate:  opts.Validate,
		occurred:  opts.OccurredAt,
		logger:    logger,
		subs:      make(map[int]func([]T)),
	}
}

// Name returns the store's name.
func (s *Store[T]) Name() string { return s.name }

func (s *Store[T]) indexOfLocked(id string) int {
	for i := range s.records {
		if s.records[i].RecordID() == id {
			return i
		}
	}
	return -1
}

func (s *Store[T]) snapshotLocked() []T {
	snap := make([]T, len(s.records))
	copy(snap, s.records)
	return snap
}

// Snapshot returns a copy of the current collection in insertion order.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the record with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfLocked(id); i >= 0 {
		return s.records[i], true
	}
	var zero T
	return zero, false
}

// Len returns the number of records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ForToday returns the records whose timestamp falls on the same local day
// as now. Stores without an OccurredAt hook return the full snapshot.
func (s *Store[T]) ForToday(now time.Time) []T {
	if s.occurred == nil {
		return s.Snapshot()
	}
	y, m, d := now.Date()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, rec := range s.records {
		ry, rm, rd := s.occurred(rec).In(now.Location()).Date()
		if ry == y && rm == m && rd == d {
			out = append(out, rec)
		}
	}
	return out
}

// Subscribe registers an observer that receives a full snapshot after every
// change. The returned function removes the subscription.
func (s *Store[T]) Subscribe(fn func([]T)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store[T]) notify(snap []T) {
	s.subMu.Lock()
	fns := make([]func([]T), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store[T]) publish(ctx context.Context, action Action, record any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.name, action, record); err != nil {
		s.logger.Warn("broadcast publish failed",
			zap.String("store", s.name),
			zap.String("action", action.String()),
			zap.Error(err),
		)
	}
}

// Add persists a new record and appends the canonical row the backend
// returns. A uniqueness conflict on the record's idempotency key is absorbed
// as a successful no-op, so duplicate bulk insert attempts do not error.
func (s *Store[T]) Add(ctx context.Context, rec T) (T, error) {
	var zero T
	if s.validate != nil {
		if err := s.validate(rec); err != nil {
			return zero, err
		}
	}

	persisted, err := s.persist.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			s.logger.Debug("duplicate insert absorbed",
				zap.String("store", s.name),
			)
			return rec, nil
		}
		return zero, &PersistenceError{Store: s.name, Op: "add", Err: err}
	}

	s.mu.Lock()
	if s.indexOfLocked(persisted.RecordID()) >= 0 {
		// The realtime echo for this insert landed first.
		s.mu.Unlock()
		return persisted, nil
	}
	s.records = append(s.records, persisted)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	s.publish(ctx, ActionAdd, persisted)
	return persisted, nil
}

// Update applies the record optimistically, then persists it. On remote
// failure the previous copy is restored before the error is returned.
func (s *Store[T]) Update(ctx context.Context, rec T) error {
	id := rec.RecordID()
	if id == "" {
		return &ValidationError{Field: "id", Reason: "missing"}
	}

	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return &ValidationError{Field: "id", Reason: "unknown record " + id}
	}
	prev := s.records[i]
	s.records[i] = rec
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	if err := s.persist.Update(ctx, rec); err != nil {
		s.mu.Lock()
		if j := s.indexOfLocked(id); j >= 0 {
			s.records[j] = prev
		}
		snap = s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return &PersistenceError{Store: s.name, Op: "update", Err: err}
	}

	s.publish(ctx, ActionUpdate, rec)
	return nil
}

// Delete removes the record locally first, then issues the remote delete.
// A remote failure is logged and the local removal kept: a row the user
// dismissed must not reappear. An absent id is a no-op.
func (s *Store[T]) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	if err := s.persist.Delete(ctx, id); err != nil {
		s.logger.Warn("remote delete failed, keeping local removal",
			zap.String("store", s.name),
			zap.String("id", id),
			zap.Error(err),
		)
	}
	s.publish(ctx, ActionRemove, removed)
}

// LoadAll replaces the collection with the backend's current contents.
func (s *Store[T]) LoadAll(ctx context.Context) error {
	records, err := s.persist.ListAll(ctx)
	if err != nil {
		return &PersistenceError{Store: s.name, Op: "load", Err: err}
	}

	s.mu.Lock()
	s.records = records
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	s.logger.Info("store loaded",
		zap.String("store", s.name),
		zap.Int("count", len(records)),
	)
	return nil
}

// ApplyRemote reconciles an externally sourced mutation (cross-tab broadcast
// or realtime feed) into the collection. It is idempotent: an add for an
// existing id and a remove for an absent id are no-ops, an update for an
// absent id is treated as an add. It never re-publishes and never panics on
// malformed input.
func (s *Store[T]) ApplyRemote(m Mutation[T]) {
	var snap []T

	switch m.Action {
	case ActionAdd:
		id := m.Record.RecordID()
		if id == "" {
			return
		}
		s.mu.Lock()
		if s.indexOfLocked(id) >= 0 {
			s.mu.Unlock()
			return
		}
		s.records = append(s.records, m.Record)
		snap = s.snapshotLocked()
		s.mu.Unlock()

	case ActionUpdate:
		id := m.Record.RecordID()
		if id == "" {
			return
		}
		s.mu.Lock()
		if i := s.indexOfLocked(id); i >= 0 {
			// Last write wins: replace wholesale, no timestamp comparison.
			s.records[i] = m.Record
		} else {
			// Tolerate update-before-add arrival order.
			s.records = append(s.records, m.Record)
		}
		snap = s.snapshotLocked()
		s.mu.Unlock()

	case ActionRemove:
		id := m.Record.RecordID()
		if id == "" {
			return
		}
		s.mu.Lock()
		i := s.indexOfLocked(id)
		if i < 0 {
			s.mu.Unlock()
			return
		}
		s.records = append(s.records[:i], s.records[i+1:]...)
		snap = s.snapshotLocked()
		s.mu.Unlock()

	case ActionBulkRemove:
		if len(m.IDs) == 0 {
			return
		}
		drop := make(map[string]struct{}, len(m.IDs))
		for _, id := range m.IDs {
			drop[id] = struct{}{}
		}
		s.mu.Lock()
		kept := s.records[:0]
		for _, rec := range s.records {
			if _, ok := drop[rec.RecordID()]; !ok {
				kept = append(kept, rec)
			}
		}
		if len(kept) == len(s.records) {
			s.mu.Unlock()
			return
		}
		s.records = kept
		snap = s.snapshotLocked()
		s.mu.Unlock()

	default:
		s.logger.Warn("ignoring mutation with unknown action",
			zap.String("store", s.name),
		)
		return
	}

	s.notify(snap)
}
