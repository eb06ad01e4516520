// Package guard rejects a second submit from the same UI session while the
// first is still in flight.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"vidiai/internal/domain"
)

const keyPrefix = "vidiai:submit:"

// Guard hands out per-key leases.
type Guard interface {
	// Acquire returns a release func, or ErrSubmitInFlight when key is held.
	Acquire(ctx context.Context, key string) (func(), error)
}

// redisCmdable is the part of the redis client the guard uses.
type redisCmdable interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// releaseScript deletes the key only when it still holds our token, so an
// expired lease never frees someone else's.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// Redis leases keys with SET NX PX.
type Redis struct {
	client redisCmdable
	ttl    time.Duration
}

// NewRedis builds a guard over client with lease ttl.
func NewRedis(client redisCmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (g *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, keyPrefix+key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("guard: acquire %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrSubmitInFlight
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = g.client.Eval(ctx, releaseScript, []string{keyPrefix + key}, token).Err()
	}, nil
}

// Memory leases keys inside one process.
type Memory struct {
	mu     sync.Mutex
	ttl    time.Duration
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

// NewMemory builds an in-process guard with lease ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, leases: make(map[string]lease), now: time.Now}
}

func (g *Memory) Acquire(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if l, ok := g.leases[key]; ok && now.Before(l.expires) {
		return nil, domain.ErrSubmitInFlight
	}
	token := uuid.NewString()
	g.leases[key] = lease{token: token, expires: now.Add(g.ttl)}
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if l, ok := g.leases[key]; ok && l.token == token {
			delete(g.leases, key)
		}
	}, nil
}

var (
	_ Guard = (*Redis)(nil)
	_ Guard = (*Memory)(nil)
)
