// Package syncer moves a product snapshot between devices through a
// remote.Store, addressed by a short numeric code the user types on the
// other device.
package syncer

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/mmynk/pantry/internal/models"
	"github.com/mmynk/pantry/internal/remote"
)

var (
	ErrInvalidOrExpiredCode = errors.New("sync code is invalid or has expired")
	ErrNetworkFailure       = errors.New("could not reach the sync service")
	ErrCodeSpaceExhausted   = errors.New("could not allocate a free sync code")
)

const (
	// CodeLength is the number of digits in a sync code.
	CodeLength = 6

	// DefaultTTL is how long a pushed snapshot stays available.
	DefaultTTL = 10 * time.Minute

	// maxAttempts bounds retries when a generated code is already in use.
	maxAttempts = 5
)

// Syncer pushes and pulls snapshots.
type Syncer struct {
	store   remote.Store
	ttl     time.Duration
	now     func() time.Time
	newCode func() string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithTTL sets how long pushed snapshots live.
func WithTTL(ttl time.Duration) Option {
	return func(s *Syncer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithCodeGenerator replaces the random code generator.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Syncer) { s.newCode = gen }
}

// New creates a Syncer on top of store.
func New(store remote.Store, opts ...Option) *Syncer {
	s := &Syncer{
		store:   store,
		ttl:     DefaultTTL,
		now:     time.Now,
		newCode: RandomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL reports how long pushed snapshots stay available.
func (s *Syncer) TTL() time.Duration {
	return s.ttl
}

// Push stores groups under a fresh code and returns the code and the time
// the snapshot stops being available. A generated code that is already live
// is discarded and another is tried.
func (s *Syncer) Push(ctx context.Context, groups []models.ProductGroup) (code string, expiresAt time.Time, err error) {
	products, err := json.Marshal(groups)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to encode products: %w", err)
	}

	now := s.now()
	expiresAt = now.Add(s.ttl)
	payload, err := json.Marshal(models.SyncPayload{
		Products:  products,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to encode payload: %w", err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		code = s.newCode()
		created, err := s.store.Put(ctx, Key(code), payload, s.ttl)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
		if created {
			slog.Info("Snapshot pushed", "groups", len(groups), "bytes", len(payload), "attempt", attempt)
			return code, expiresAt, nil
		}
		slog.Debug("Sync code in use, retrying", "attempt", attempt)
	}
	return "", time.Time{}, ErrCodeSpaceExhausted
}

// Pull fetches the snapshot stored under code and deletes it, so each code
// can be used once. The products are returned undecoded so the caller can
// run them through the same decoding as an import.
func (s *Syncer) Pull(ctx context.Context, code string) (models.SyncPayload, error) {
	if !ValidCode(code) {
		return models.SyncPayload{}, ErrInvalidOrExpiredCode
	}

	key := Key(code)
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, remote.ErrNotFound) {
		return models.SyncPayload{}, ErrInvalidOrExpiredCode
	}
	if err != nil {
		return models.SyncPayload{}, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}

	var payload models.SyncPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return models.SyncPayload{}, fmt.Errorf("%w: malformed payload: %v", ErrInvalidOrExpiredCode, err)
	}

	if err := s.store.Delete(ctx, key); err != nil {
		slog.Warn("Failed to delete consumed sync record", "error", err)
	}

	slog.Info("Snapshot pulled", "bytes", len(data), "created_at", payload.CreatedAt)
	return payload, nil
}

// Key derives the store key for a code. Codes are hashed so the store
// never holds a live code in clear text.
func Key(code string) string {
	sum := blake2b.Sum256([]byte(code))
	return "sync:" + hex.EncodeToString(sum[:])
}

// ValidCode reports whether code has the shape of a sync code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RandomCode returns a random code between 100000 and 999999.
func RandomCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}
