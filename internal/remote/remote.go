// Package remote defines the shared key/value store that holds sync records.
// Records are short-lived: the store drops them once their TTL passes.
package remote

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("record not found")
)

// Store is a key/value store with per-record expiry.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores value under key for ttl unless a live record already holds
	// the key. created is false when the key was taken.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) (created bool, err error)

	// Get returns the live value under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
