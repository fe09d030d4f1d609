package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	sessionTTL       = 24 * time.Hour
)

// ErrNoSession is returned when a session id is unknown or expired.
var ErrNoSession = errors.New("session not found")

// Store manages sessions in Redis: session:<id> -> user id, expiring after ttl.
type Store struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewStore returns a new session store.
func NewStore(rdb redis.Cmdable, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = sessionTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// TTL returns how long a session lives after creation.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create stores a new session bound to userID and returns its ID.
func (s *Store) Create(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	if err := s.rdb.Set(ctx, sessionKeyPrefix+id, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	return id, nil
}

// GetUserID returns the user bound to the session.
func (s *Store) GetUserID(ctx context.Context, id string) (string, error) {
	userID, err := s.rdb.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", fmt.Errorf("session get: %w", err)
	}
	return userID, nil
}

// Delete removes a session by ID. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}
