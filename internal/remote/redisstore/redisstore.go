// Package redisstore implements remote.Store on Redis. Record expiry is
// delegated to Redis key TTLs.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/pantry/internal/remote"
)

var _ remote.Store = (*Store)(nil)

// Store keeps sync records as plain Redis strings.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// Connect parses redisURL, creates a client and validates connectivity.
func Connect(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	// Validate connectivity at startup
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return New(rdb), nil
}

// New wraps an existing client. Keys are stored under the "pantry:" prefix.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, prefix: "pantry:"}
}

// Put stores value with SET NX so a live record is never overwritten.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to put %q: %w", key, err)
	}
	return ok, nil
}

// Get returns the value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, remote.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}
