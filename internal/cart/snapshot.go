package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-engine/pkg/redis"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// Snapshot TTL is generous on purpose: an abandoned cart should survive a
// browser restart but not linger for months.
const snapshotTTL = 30 * 24 * time.Hour

// RedisSnapshots stores cart snapshots as JSON blobs in Redis.
type RedisSnapshots struct {
	client *redis.Client
}

// NewRedisSnapshots wires the snapshot store to a Redis client.
func NewRedisSnapshots(client *redis.Client) (*RedisSnapshots, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisSnapshots{client: client}, nil
}

func (r *RedisSnapshots) Save(ctx context.Context, userID string, cart types.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	return r.client.Set(ctx, r.client.CartSnapshotKey(userID), payload, snapshotTTL)
}

// Load returns nil without error when no snapshot exists.
func (r *RedisSnapshots) Load(ctx context.Context, userID string) (*types.Cart, error) {
	raw, err := r.client.Get(ctx, r.client.CartSnapshotKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var cart types.Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return &cart, nil
}

func (r *RedisSnapshots) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.client.CartSnapshotKey(userID))
}
