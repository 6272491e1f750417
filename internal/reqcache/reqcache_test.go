package reqcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, nil, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "s-1", "list:estudiantes:page=1", []byte(`{"data":[]}`)))

	raw, err := cache.Get(ctx, "s-1", "list:estudiantes:page=1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(raw))
}

func TestCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Get(context.Background(), "s-1", "nunca-guardado")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCacheIsSessionScoped(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "s-1", "list:pagos:page=1", []byte(`[1]`)))

	_, err := cache.Get(ctx, "s-2", "list:pagos:page=1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestFlushSessionDropsOnlyThatSession(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "s-1", "list:pagos:page=1", []byte(`[1]`)))
	require.NoError(t, cache.Set(ctx, "s-1", "list:pagos:page=2", []byte(`[2]`)))
	require.NoError(t, cache.Set(ctx, "s-2", "list:pagos:page=1", []byte(`[3]`)))

	require.NoError(t, cache.FlushSession(ctx, "s-1"))

	_, err := cache.Get(ctx, "s-1", "list:pagos:page=1")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = cache.Get(ctx, "s-1", "list:pagos:page=2")
	assert.ErrorIs(t, err, ErrMiss)

	raw, err := cache.Get(ctx, "s-2", "list:pagos:page=1")
	require.NoError(t, err)
	assert.Equal(t, "[3]", string(raw))
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "s-1", "list:pagos:page=1", []byte(`[1]`)))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "s-1", "list:pagos:page=1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNilClientDegradesToPassThrough(t *testing.T) {
	cache := New(nil, nil, time.Minute)
	ctx := context.Background()

	assert.NoError(t, cache.Set(ctx, "s-1", "k", []byte(`v`)))
	_, err := cache.Get(ctx, "s-1", "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, cache.FlushSession(ctx, "s-1"))
}
