package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := NewRedisStore(newTestRedis(t), time.Hour)
	ctx := context.Background()

	sess := &models.Session{
		ID:    NewSessionID(),
		Token: "tok-1",
		User:  &models.User{ID: "u-1", Role: "admin"},
		State: models.SessionAuthenticated,
	}
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "tok-1", loaded.Token)
	// stored role casing is normalized on hydration
	assert.Equal(t, models.RoleAdmin, loaded.User.Role)
	assert.Equal(t, models.SessionAuthenticated, loaded.State)
}

func TestRedisStoreLoadMissing(t *testing.T) {
	store := NewRedisStore(newTestRedis(t), time.Hour)

	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStoreDelete(t *testing.T) {
	store := NewRedisStore(newTestRedis(t), time.Hour)
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", State: models.SessionUnauthenticated}
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Delete(ctx, "s-1"))

	_, err := store.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNoSession)

	// deleting again is not an error
	assert.NoError(t, store.Delete(ctx, "s-1"))
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Session{ID: "s-1"}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := &models.Session{ID: "s-1", Token: "tok"}
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	loaded.Token = "changed"

	again, err := store.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", again.Token)
}
