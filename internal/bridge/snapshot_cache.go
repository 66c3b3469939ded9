package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SnapshotCache publishes the derived legacy arrays to Redis so kiosk
// displays can read the same snapshots the legacy context sees. Writes are
// best-effort: a cache failure is logged, never propagated into the bridge.
type SnapshotCache struct {
	kv     KVStore
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotCache creates a cache writing under prefix with the given TTL.
func NewSnapshotCache(kv KVStore, prefix string, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{kv: kv, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *SnapshotCache) key(name string) string {
	return fmt.Sprintf("%s%s", c.prefix, name)
}

// Write stores one named snapshot as JSON.
func (c *SnapshotCache) Write(name string, snapshot any) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		c.logger.Warn("failed to marshal snapshot",
			zap.String("name", name),
			zap.Error(err),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.kv.Set(ctx, c.key(name), string(data), c.ttl); err != nil {
		c.logger.Warn("failed to write snapshot cache",
			zap.String("name", name),
			zap.Error(err),
		)
	}
}

// Read loads one named snapshot into the given value.
func (c *SnapshotCache) Read(ctx context.Context, name string, into any) error {
	raw, err := c.kv.Get(ctx, c.key(name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot %s: %w", name, err)
	}
	return nil
}
