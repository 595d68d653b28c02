// Package store is the string-keyed byte store snapshots are written to,
// with in-memory, bbolt and SQLite backends.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("store: key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// backend's capacity. The previous value is left in place.
	ErrQuotaExceeded = errors.New("store: quota exceeded")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store: closed")
)

// Store is a flat key space. Every Set is atomic per key; there is no
// multi-key transaction and no locking between writers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists the keys starting with prefix in ascending byte order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
