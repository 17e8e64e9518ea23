package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxrelay/wxrelay/internal/cache"
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()

	c, err := cache.New(cache.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func TestCacheSetGet(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	err := c.SetWithTTL(ctx, "data:london", []byte(`{"temp":12}`), time.Minute)
	require.NoError(t, err)

	// Ristretto admits writes asynchronously.
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "data:london")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	value, err := c.Get(ctx, "data:london")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"temp":12}`), value)
}

func TestCacheMiss(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	_, err := c.Get(context.Background(), "data:nowhere")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestCacheGetReturnsCopy(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "k", []byte("abc"), time.Minute))
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	first, err := c.Get(ctx, "k")
	require.NoError(t, err)
	first[0] = 'z'

	second, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), second)
}

func TestCacheTTLExpiry(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetWithTTL(ctx, "short", []byte("v"), 50*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "short")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "short")
		return errors.Is(err, cache.ErrNotFound)
	}, time.Second, 10*time.Millisecond)
}

func TestCacheClosedOperations(t *testing.T) {
	t.Parallel()

	c, err := cache.New(cache.Config{})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close()) // idempotent

	ctx := context.Background()
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrClosed)
	assert.ErrorIs(t, c.SetWithTTL(ctx, "k", []byte("v"), time.Minute), cache.ErrClosed)
	assert.ErrorIs(t, c.Delete(ctx, "k"), cache.ErrClosed)
}

func TestNoopCache(t *testing.T) {
	t.Parallel()

	disabled := false
	c, err := cache.New(cache.Config{Enabled: &disabled})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.SetWithTTL(ctx, "k", []byte("v"), time.Minute))

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.NoError(t, c.Close())
}

func TestCacheConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := cache.Config{}
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, 30*time.Second, cfg.GetTTL())

	cfg.TTLMS = 5000
	assert.Equal(t, 5*time.Second, cfg.GetTTL())
}
