package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewTestClient returns a Client backed by an in-memory store. TTLs are
// ignored. Intended for tests only.
func NewTestClient() *Client {
	return &Client{store: newMemoryCmdable()}
}

type memoryCmdable struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryCmdable() *memoryCmdable {
	return &memoryCmdable{values: map[string]string{}}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func (m *memoryCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (m *memoryCmdable) Set(ctx context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	m.values[key] = stringify(value)
	m.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *memoryCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	val, ok := m.values[key]
	m.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	if ok {
		cmd.SetVal(val)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *memoryCmdable) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if _, exists := m.values[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	m.values[key] = stringify(value)
	cmd.SetVal(true)
	return cmd
}

func (m *memoryCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	var removed int64
	for _, key := range keys {
		if _, ok := m.values[key]; ok {
			delete(m.values, key)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}
