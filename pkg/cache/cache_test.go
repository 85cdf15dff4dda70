package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemorySetGetDelete(t *testing.T) {
	c := NewInMemory()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestInMemoryExpiry(t *testing.T) {
	c := NewInMemory()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestInMemoryDeletePrefix(t *testing.T) {
	c := NewInMemory()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "movies:a", "1", time.Minute))
	require.NoError(t, c.Set(ctx, "movies:b", "2", time.Minute))
	require.NoError(t, c.Set(ctx, "nights:a", "3", time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "movies:"))
	_, ok := c.Get(ctx, "movies:a")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "movies:b")
	assert.False(t, ok)
	got, ok := c.Get(ctx, "nights:a")
	assert.True(t, ok)
	assert.Equal(t, "3", got)
}
