// Package reqcache is the per-session request cache: list pages already
// fetched for a session are served from Redis for a short window. Logout
// flushes a session's entries wholesale so nothing cached under the old
// identity survives.
package reqcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned when no cached value exists.
var ErrMiss = errors.New("request cache miss")

// Cache wraps Redis for request-scoped caching. A nil client degrades to a
// pass-through: every lookup misses and writes are dropped.
type Cache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// New constructs the cache.
func New(client *redis.Client, logger *zap.Logger, ttl time.Duration) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{client: client, logger: logger, ttl: ttl}
}

func (c *Cache) key(sessionID, requestKey string) string {
	sum := sha256.Sum256([]byte(requestKey))
	return "icap:reqcache:" + sessionID + ":" + hex.EncodeToString(sum[:8])
}

func (c *Cache) indexKey(sessionID string) string {
	return "icap:reqcache:index:" + sessionID
}

// Get returns the cached payload for a request key.
func (c *Cache) Get(ctx context.Context, sessionID, requestKey string) ([]byte, error) {
	if c.client == nil {
		return nil, ErrMiss
	}
	raw, err := c.client.Get(ctx, c.key(sessionID, requestKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return raw, nil
}

// Set stores a payload and records the key in the session's index set so
// FlushSession can find it later.
func (c *Cache) Set(ctx context.Context, sessionID, requestKey string, payload []byte) error {
	if c.client == nil {
		return nil
	}
	key := c.key(sessionID, requestKey)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, payload, c.ttl)
	pipe.SAdd(ctx, c.indexKey(sessionID), key)
	pipe.Expire(ctx, c.indexKey(sessionID), c.ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

// FlushSession drops every cached entry belonging to a session.
func (c *Cache) FlushSession(ctx context.Context, sessionID string) error {
	if c.client == nil {
		return nil
	}
	keys, err := c.client.SMembers(ctx, c.indexKey(sessionID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys = append(keys, c.indexKey(sessionID))
	if err := c.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	c.logger.Debug("request cache flushed", zap.String("session_id", sessionID), zap.Int("keys", len(keys)))
	return nil
}
