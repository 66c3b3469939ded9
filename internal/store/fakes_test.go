package store_test

import (
	"context"
	"sync"

	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/store"
)

// fakePersist is an in-memory Persistence for unit tests. Error fields make
// individual remote calls fail; insertFn lets a test shape the canonical row
// the backend would return.
type fakePersist[T models.Record] struct {
	mu sync.Mutex

	insertFn  func(T) (T, error)
	insertErr error
	updateErr error
	deleteErr error
	listErr   error
	listRows  []T

	insertCalls int
	updateCalls int
	deleteCalls int
}

func (f *fakePersist[T]) Insert(ctx context.Context, rec T) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		var zero T
		return zero, f.insertErr
	}
	if f.insertFn != nil {
		return f.insertFn(rec)
	}
	return rec, nil
}

func (f *fakePersist[T]) Update(ctx context.Context, rec T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.updateErr
}

func (f *fakePersist[T]) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakePersist[T]) ListAll(ctx context.Context) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listRows, nil
}

// fakeBulk records batched status calls.
type fakeBulk struct {
	mu     sync.Mutex
	err    error
	calls  int
	ids    []string
	status models.ServiceStatus
}

func (f *fakeBulk) UpdateStatusBulk(ctx context.Context, ids []string, status models.ServiceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ids = append([]string(nil), ids...)
	f.status = status
	return f.err
}

// fakePublisher captures broadcasts.
type fakePublisher struct {
	mu      sync.Mutex
	entries []publishedEntry
}

type publishedEntry struct {
	channel string
	action  store.Action
	record  any
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, action store.Action, record any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, publishedEntry{channel: channel, action: action, record: record})
	return nil
}

func (f *fakePublisher) published() []publishedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEntry(nil), f.entries...)
}
