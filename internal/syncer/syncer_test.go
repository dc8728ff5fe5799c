package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/pantry/internal/models"
	"github.com/mmynk/pantry/internal/remote"
)

// memStore is an in-memory remote.Store.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	puts    int
	failAll error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.failAll != nil {
		return false, m.failAll
	}
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	v, ok := m.data[key]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// sequence returns a generator yielding codes in order.
func sequence(codes ...string) func() string {
	i := 0
	return func() string {
		c := codes[i%len(codes)]
		i++
		return c
	}
}

var sample = []models.ProductGroup{{
	ID: 1, Name: "Milk", Barcode: "M",
	Expiries: []models.ExpiryBatch{{ExpiryDate: models.NewDate(2025, time.July, 1), Quantity: 2}},
}}

func TestPushPull_SingleUse(t *testing.T) {
	store := newMemStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(store, WithClock(func() time.Time { return now }), WithTTL(15*time.Minute))
	ctx := context.Background()

	code, expiresAt, err := s.Push(ctx, sample)
	require.NoError(t, err)
	assert.True(t, ValidCode(code))
	assert.Equal(t, now.Add(15*time.Minute), expiresAt)

	payload, err := s.Pull(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), payload.CreatedAt)
	assert.Equal(t, expiresAt.UnixMilli(), payload.ExpiresAt)

	var groups []models.ProductGroup
	require.NoError(t, json.Unmarshal(payload.Products, &groups))
	assert.Equal(t, sample, groups)

	_, err = s.Pull(ctx, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "a code works once")
}

func TestPush_RetriesOnCollision(t *testing.T) {
	store := newMemStore()
	store.data[Key("111111")] = []byte("{}")

	s := New(store, WithCodeGenerator(sequence("111111", "222222")))
	code, _, err := s.Push(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "222222", code)
	assert.Equal(t, 2, store.puts)
}

func TestPush_GivesUpAfterMaxAttempts(t *testing.T) {
	store := newMemStore()
	store.data[Key("111111")] = []byte("{}")

	s := New(store, WithCodeGenerator(sequence("111111")))
	_, _, err := s.Push(context.Background(), sample)
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	assert.Equal(t, maxAttempts, store.puts)
}

func TestNetworkFailure(t *testing.T) {
	store := newMemStore()
	store.failAll = errors.New("connection refused")
	s := New(store)

	_, _, err := s.Push(context.Background(), sample)
	assert.ErrorIs(t, err, ErrNetworkFailure)

	_, err = s.Pull(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrNetworkFailure)
}

func TestPull_InvalidCodes(t *testing.T) {
	s := New(newMemStore())
	for _, code := range []string{"", "12345", "1234567", "12a456", "999999"} {
		_, err := s.Pull(context.Background(), code)
		assert.ErrorIs(t, err, ErrInvalidOrExpiredCode, "code %q", code)
	}
}

func TestKeyHidesCode(t *testing.T) {
	key := Key("123456")
	assert.True(t, strings.HasPrefix(key, "sync:"))
	assert.NotContains(t, key, "123456")
	assert.Equal(t, key, Key("123456"))
	assert.NotEqual(t, key, Key("123457"))
}

func TestRandomCode(t *testing.T) {
	for range 100 {
		assert.True(t, ValidCode(RandomCode()))
	}
}
