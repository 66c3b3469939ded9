package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hopes-corner-sync/internal/store"
)

// Message is the wire shape shared by every broadcast channel. Payload
// carries the record for add/update/remove; IDs carries the id list for
// bulkRemove.
type Message struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
	IDs     []string        `json:"ids,omitempty"`
}

// Inbound is a raw message received from the transport.
type Inbound struct {
	Channel string
	Payload []byte
}

// Transport is the same-origin publish/subscribe primitive the bridge rides
// on. The production implementation is Redis pub/sub; tests use an in-memory
// fake.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, pattern string) (<-chan Inbound, func() error, error)
}

// Bridge fans mutations out to the other front-desk terminals and dispatches
// inbound ones to per-channel handlers. Delivery is at-most-once and
// best-effort; messages published by this process are skipped on receipt.
type Bridge struct {
	transport Transport
	prefix    string
	origin    string
	logger    *zap.Logger

	mu       sync.Mutex
	handlers map[string]map[int]func(Message)
	nextID   int
	closeFn  func() error
}

// NewBridge creates a bridge. prefix namespaces the transport channels so
// several deployments can share one Redis.
func NewBridge(transport Transport, prefix string, logger *zap.Logger) *Bridge {
	return &Bridge{
		transport: transport,
		prefix:    prefix,
		origin:    uuid.NewString(),
		logger:    logger,
		handlers:  make(map[string]map[int]func(Message)),
	}
}

// Publish implements store.Publisher. A []string record is sent as a
// bulkRemove id list; anything else is JSON-encoded as the payload.
func (b *Bridge) Publish(ctx context.Context, channel string, action store.Action, record any) error {
	msg := Message{
		Origin:  b.origin,
		Channel: channel,
		Action:  action.String(),
	}

	switch rec := record.(type) {
	case []string:
		msg.IDs = rec
	default:
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		msg.Payload = payload
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.transport.Publish(ctx, b.prefix+channel, data)
}

// OnChange registers a handler for one logical channel and returns its
// unsubscribe function.
func (b *Bridge) OnChange(channel string, fn func(Message)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.handlers[channel] == nil {
		b.handlers[channel] = make(map[int]func(Message))
	}
	b.handlers[channel][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers[channel], id)
		b.mu.Unlock()
	}
}

// Listen subscribes to the transport and starts dispatching. Calling it
// while already listening tears the previous subscription down first, so
// handlers never fire twice for one event.
func (b *Bridge) Listen(ctx context.Context) error {
	b.Close()

	inbound, closeFn, err := b.transport.Subscribe(ctx, b.prefix+"*")
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.closeFn = closeFn
	b.mu.Unlock()

	go func() {
		for in := range inbound {
			b.dispatch(in)
		}
	}()
	return nil
}

func (b *Bridge) dispatch(in Inbound) {
	var msg Message
	if err := json.Unmarshal(in.Payload, &msg); err != nil {
		b.logger.Debug("ignoring malformed broadcast message",
			zap.String("channel", in.Channel),
			zap.Error(err),
		)
		return
	}

	if msg.Origin == b.origin {
		return
	}
	// Subscribers must never see a null/empty payload.
	if (len(msg.Payload) == 0 || string(msg.Payload) == "null") && len(msg.IDs) == 0 {
		return
	}

	b.mu.Lock()
	fns := make([]func(Message), 0, len(b.handlers[msg.Channel]))
	for _, fn := range b.handlers[msg.Channel] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(msg)
	}
}

// Close stops dispatching. Safe to call repeatedly and before Listen.
func (b *Bridge) Close() {
	b.mu.Lock()
	closeFn := b.closeFn
	b.closeFn = nil
	b.mu.Unlock()

	if closeFn != nil {
		if err := closeFn(); err != nil {
			b.logger.Warn("failed to close broadcast subscription", zap.Error(err))
		}
	}
}
