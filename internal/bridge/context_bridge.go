package bridge

import (
	"sync"

	"go.uber.org/zap"

	"hopes-corner-sync/internal/models"
)

// Observable is the store surface the bridge consumes.
type Observable[T models.Record] interface {
	Snapshot() []T
	Subscribe(fn func([]T)) func()
}

// ContextBridge pushes whole-array snapshots from stores into a legacy
// global-context consumer's setter functions. The forwarded arrays are
// derived copies, fully recomputed on every change; the legacy side is never
// the source of truth.
type ContextBridge struct {
	logger *zap.Logger
	cache  *SnapshotCache

	mu     sync.Mutex
	unsubs []func()
}

// NewContextBridge creates a bridge. cache may be nil.
func NewContextBridge(cache *SnapshotCache, logger *zap.Logger) *ContextBridge {
	return &ContextBridge{logger: logger, cache: cache}
}

// Attach wires one (store, setter) pair: the setter receives the current
// snapshot eagerly, then a fresh array on every store change. A nil setter is
// silently skipped (the snapshot cache still gets the array if configured).
// filter, when set, keeps only matching records in the forwarded array.
func Attach[T models.Record](b *ContextBridge, name string, src Observable[T], setter func([]T), filter func(T) bool) {
	if setter == nil && b.cache == nil {
		return
	}

	forward := func(snap []T) {
		out := snap
		if filter != nil {
			out = make([]T, 0, len(snap))
			for _, rec := range snap {
				if filter(rec) {
					out = append(out, rec)
				}
			}
		}
		if setter != nil {
			setter(out)
		}
		if b.cache != nil {
			b.cache.Write(name, out)
		}
	}

	forward(src.Snapshot())

	unsub := src.Subscribe(forward)
	b.mu.Lock()
	b.unsubs = append(b.unsubs, unsub)
	b.mu.Unlock()
}

// Close releases every store subscription; no setter fires afterwards.
// Safe to call repeatedly.
func (b *ContextBridge) Close() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// GuestMealsOnly is the filter for the guest-facing legacy meal array: only
// guest-attributed meal entries are forwarded; bulk entries (lunch bags, RV
// counts, extras) stay in the store but out of this path.
func GuestMealsOnly(m models.Meal) bool {
	return m.GuestID != "" && m.Kind == models.MealGuest
}
