// Package storage provides abstractions for persistent local data storage.
package storage

import "context"

// ProductsKey is the key under which the product list is persisted.
const ProductsKey = "products"

// Store is a small string-keyed store for local application state.
// This abstraction allows swapping storage backends (SQLite, files, memory)
// without changing the service layer.
type Store interface {
	// Get returns the value stored under key.
	// ok is false when the key has never been set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Close releases any resources held by the store.
	Close() error
}
