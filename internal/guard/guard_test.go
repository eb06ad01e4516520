package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidiai/internal/domain"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := f.data[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.data[key] = value.(string)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewCmd(ctx)
	if f.data[keys[0]] == args[0].(string) {
		delete(f.data, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}
	cmd.SetVal(int64(0))
	return cmd
}

func TestRedisGuardSerializesSession(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	g := NewRedis(fake, time.Minute)

	release, err := g.Acquire(ctx, "session-1")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "session-1")
	assert.ErrorIs(t, err, domain.ErrSubmitInFlight)

	other, err := g.Acquire(ctx, "session-2")
	require.NoError(t, err)
	other()

	release()
	again, err := g.Acquire(ctx, "session-1")
	require.NoError(t, err)
	again()
}

func TestRedisReleaseIgnoresForeignToken(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	g := NewRedis(fake, time.Minute)

	release, err := g.Acquire(ctx, "s")
	require.NoError(t, err)
	// Simulate expiry followed by another holder.
	fake.data[keyPrefix+"s"] = "someone-else"
	release()
	assert.Equal(t, "someone-else", fake.data[keyPrefix+"s"])
}

func TestMemoryGuardExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewMemory(time.Minute)
	g.now = func() time.Time { return now }

	stale, err := g.Acquire(ctx, "s")
	require.NoError(t, err)
	_, err = g.Acquire(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSubmitInFlight)

	now = now.Add(2 * time.Minute)
	fresh, err := g.Acquire(ctx, "s")
	require.NoError(t, err)

	stale()
	_, err = g.Acquire(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSubmitInFlight, "a stale release must not free the new lease")
	fresh()

	_, err = g.Acquire(ctx, "s")
	assert.NoError(t, err)
}
