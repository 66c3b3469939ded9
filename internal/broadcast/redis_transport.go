package broadcast

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisTransport implements Transport over Redis pub/sub.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport creates a transport backed by the given client.
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

func (t *RedisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}

func (t *RedisTransport) Subscribe(ctx context.Context, pattern string) (<-chan Inbound, func() error, error) {
	pubsub := t.client.PSubscribe(ctx, pattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan Inbound)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			out <- Inbound{Channel: msg.Channel, Payload: []byte(msg.Payload)}
		}
	}()

	return out, pubsub.Close, nil
}
