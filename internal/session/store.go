package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
)

// ErrNoSession is returned when a session ID has no stored record.
var ErrNoSession = errors.New("session not found")

// Store persists session records keyed by browser session ID. The record is
// the only durable session state; everything else is re-derived from it.
type Store interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, sess *models.Session) error
	Delete(ctx context.Context, id string) error
}

// NewSessionID generates an opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// RedisStore keeps session records in Redis with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return "icap:session:" + id
}

// Load retrieves and decodes a session record.
func (s *RedisStore) Load(ctx context.Context, id string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("redis get session %s: %w", id, err)
	}

	sess := &models.Session{}
	if err := json.Unmarshal(raw, sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	// Role casing is only trusted at write time for fresh records; stored
	// records are normalized again on hydration.
	sess.User.Normalize()
	return sess, nil
}

// Save encodes and stores the record, refreshing its TTL.
func (s *RedisStore) Save(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", sess.ID, err)
	}
	return nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis del session %s: %w", id, err)
	}
	return nil
}

// MemoryStore is an in-process store for tests and single-node development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	copied := sess
	return &copied, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
