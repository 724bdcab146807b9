package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	c := NewMemory(time.Minute, 4, clock.Now)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`{"room":"Aula 1"}`)
	require.NoError(t, c.Set(ctx, "room", value))
	value[0] = 'x'

	got, ok, err := c.Get(ctx, "room")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"room":"Aula 1"}`, string(got))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	c := NewMemory(time.Minute, 4, clock.Now)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	clock.now = clock.now.Add(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	c := NewMemory(time.Hour, 2, clock.Now)

	require.NoError(t, c.Set(ctx, "first", []byte("1")))
	clock.now = clock.now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "second", []byte("2")))
	clock.now = clock.now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "third", []byte("3")))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "first")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "third")
	assert.True(t, ok)
}

func TestMemoryInvalidateBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0, 0, nil)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	require.NoError(t, c.Invalidate(ctx))

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.Equal(t, 0, c.Len())
}
