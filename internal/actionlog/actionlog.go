package actionlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind is the closed set of undoable action kinds. The undo dispatcher only
// accepts these; anything else is rejected at registration time rather than
// falling through a runtime default branch.
type Kind string

const (
	KindMealAdded        Kind = "meal_added"
	KindShowerBooked     Kind = "shower_booked"
	KindLaundryAdded     Kind = "laundry_added"
	KindBicycleAdded     Kind = "bicycle_added"
	KindHaircutAdded     Kind = "haircut_added"
	KindHolidayAdded     Kind = "holiday_added"
	KindDonationRecorded Kind = "donation_recorded"
	KindReminderAdded    Kind = "reminder_added"
)

// Data identifies the record an action touched.
type Data struct {
	RecordID string `json:"record_id"`
	GuestID  string `json:"guest_id,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Entry is one audit-trail entry. Entries are created when a user-facing
// mutation succeeds, removed when undone, and never mutated otherwise.
type Entry struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Data      Data      `json:"data"`
}

// InverseFunc reverses one action kind, typically a delete on the owning
// store.
type InverseFunc func(ctx context.Context, data Data) error

// DefaultCap bounds the log when no cap is configured.
const DefaultCap = 50

// Log is a bounded, newest-first list of undoable actions shared by every
// store.
type Log struct {
	logger   *zap.Logger
	cap      int
	inverses map[Kind]InverseFunc

	mu      sync.Mutex
	entries []Entry
}

// New creates a log holding at most cap entries (DefaultCap if cap <= 0).
func New(cap int, inverses map[Kind]InverseFunc, logger *zap.Logger) *Log {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Log{logger: logger, cap: cap, inverses: inverses}
}

// Push prepends a new entry, evicting the oldest beyond the cap.
func (l *Log) Push(kind Kind, data Data) Entry {
	entry := Entry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now(),
		Data:      data,
	}

	l.mu.Lock()
	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
	l.mu.Unlock()

	return entry
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Get returns the entry with the given id.
func (l *Log) Get(id string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) remove(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return
		}
	}
}

// Undo reverses one action and removes its entry. A missing id is a normal
// outcome (expired or already undone) and returns false without error. If
// the inverse fails the entry stays in the log so the undo can be retried.
func (l *Log) Undo(ctx context.Context, id string) bool {
	entry, ok := l.Get(id)
	if !ok {
		l.logger.Debug("undo target not found", zap.String("action_id", id))
		return false
	}

	inverse, ok := l.inverses[entry.Kind]
	if !ok {
		l.logger.Warn("no inverse registered for action kind",
			zap.String("action_id", id),
			zap.String("kind", string(entry.Kind)),
		)
		return false
	}

	if err := inverse(ctx, entry.Data); err != nil {
		l.logger.Error("undo failed, entry kept for retry",
			zap.String("action_id", id),
			zap.String("kind", string(entry.Kind)),
			zap.Error(err),
		)
		return false
	}

	l.remove(id)
	l.logger.Info("action undone",
		zap.String("action_id", id),
		zap.String("kind", string(entry.Kind)),
		zap.String("record_id", entry.Data.RecordID),
	)
	return true
}
