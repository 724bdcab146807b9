package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisAddrEnv names a reachable redis server used by the integration tests.
const redisAddrEnv = "SCHEDULER_TEST_REDIS_ADDR"

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv(redisAddrEnv)
	if addr == "" {
		t.Skipf("%s not set", redisAddrEnv)
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test-"+uuid.NewString(), time.Minute)
}

func TestNewRedisClientRequiresAddr(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{})
	require.Error(t, err)
}

func TestRedisRoundTrip(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "room", []byte("payload")))
	got, ok, err := c.Get(ctx, "room")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "payload", string(got))
}

func TestRedisInvalidate(t *testing.T) {
	c := newTestRedis(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Invalidate(ctx))

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}
