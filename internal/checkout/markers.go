package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-engine/pkg/redis"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// Markers outlive the redirect but not an abandoned session.
const markerTTL = 24 * time.Hour

// RedisMarkers stores the pending-payment marker in Redis so a
// return-from-gateway flow can reconcile the outcome.
type RedisMarkers struct {
	client *redis.Client
}

func NewRedisMarkers(client *redis.Client) (*RedisMarkers, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisMarkers{client: client}, nil
}

func (r *RedisMarkers) Save(ctx context.Context, userID string, marker types.PendingPayment) error {
	payload, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encode pending payment: %w", err)
	}
	return r.client.Set(ctx, r.client.PendingPaymentKey(userID), payload, markerTTL)
}

// Load returns nil without error when no marker exists.
func (r *RedisMarkers) Load(ctx context.Context, userID string) (*types.PendingPayment, error) {
	raw, err := r.client.Get(ctx, r.client.PendingPaymentKey(userID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var marker types.PendingPayment
	if err := json.Unmarshal([]byte(raw), &marker); err != nil {
		return nil, fmt.Errorf("decode pending payment: %w", err)
	}
	return &marker, nil
}

// Clear drops the marker once the payment outcome has been reconciled.
func (r *RedisMarkers) Clear(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.client.PendingPaymentKey(userID))
}
