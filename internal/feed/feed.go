package feed

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// EventType is the kind of row change a table channel delivers.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one change notification for a backend table row. New carries the
// row after the change (insert/update), Old the row before it (delete).
type Event struct {
	Type EventType       `json:"event_type"`
	New  json.RawMessage `json:"new,omitempty"`
	Old  json.RawMessage `json:"old,omitempty"`
}

// Handler consumes one decoded event.
type Handler func(Event)

// Multi fans one table's events out to several handlers (the shared services
// table feeds every per-kind store).
func Multi(handlers ...Handler) Handler {
	return func(ev Event) {
		for _, h := range handlers {
			h(ev)
		}
	}
}

// Transport is the push subscription primitive under the listener. The
// production implementation is the MQTT client wrapper.
type Transport interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topics ...string) error
}

// Listener subscribes to one push channel per backend table and forwards
// decoded events to the table's handler. Malformed payloads are dropped, not
// surfaced: reconciliation inputs must never crash the event pipeline.
type Listener struct {
	transport Transport
	prefix    string
	qos       byte
	logger    *zap.Logger

	mu     sync.Mutex
	topics []string
}

// NewListener creates a listener. prefix namespaces the per-table topics,
// e.g. "hopes/tables/".
func NewListener(transport Transport, prefix string, qos byte, logger *zap.Logger) *Listener {
	return &Listener{
		transport: transport,
		prefix:    prefix,
		qos:       qos,
		logger:    logger,
	}
}

// Subscribe registers one handler per table. Calling it while already
// subscribed tears the existing subscriptions down first, so a reconnect can
// never leave duplicate handlers firing for the same event.
func (l *Listener) Subscribe(tables map[string]Handler) error {
	l.Unsubscribe()

	l.mu.Lock()
	defer l.mu.Unlock()

	for table, handler := range tables {
		topic := l.prefix + table
		h := handler
		err := l.transport.Subscribe(topic, l.qos, func(topic string, payload []byte) error {
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				l.logger.Debug("ignoring malformed feed payload",
					zap.String("topic", topic),
					zap.Error(err),
				)
				return nil
			}
			if ev.Type == "" {
				return nil
			}
			h(ev)
			return nil
		})
		if err != nil {
			// Roll the partial subscription back before reporting.
			if len(l.topics) > 0 {
				if uerr := l.transport.Unsubscribe(l.topics...); uerr != nil {
					l.logger.Warn("failed to unwind partial feed subscription", zap.Error(uerr))
				}
				l.topics = nil
			}
			return fmt.Errorf("failed to subscribe to table %s: %w", table, err)
		}
		l.topics = append(l.topics, topic)
	}

	l.logger.Info("realtime feed subscribed", zap.Int("tables", len(tables)))
	return nil
}

// Unsubscribe tears all table subscriptions down. Safe to call repeatedly
// and when nothing is subscribed.
func (l *Listener) Unsubscribe() {
	l.mu.Lock()
	topics := l.topics
	l.topics = nil
	l.mu.Unlock()

	if len(topics) == 0 {
		return
	}
	if err := l.transport.Unsubscribe(topics...); err != nil {
		l.logger.Warn("failed to unsubscribe from feed topics", zap.Error(err))
	}
}
