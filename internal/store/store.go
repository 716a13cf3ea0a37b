// Package store is a thin client for the remote key-value store. It issues
// single commands and pipelined batches; there is no local caching.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("internal/store: key not found")

// ErrUnavailable is returned by components whose backing store was never
// configured. Callers decide whether that fails open or closed.
var ErrUnavailable = errors.New("internal/store: store unavailable")

// Commander is the command surface the chat components need. The store
// guarantees per-key atomicity for Incr but no cross-key transactions.
type Commander interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// IncrWithTTL runs INCR and PTTL for key as one pipelined round trip
	// and returns the new counter value and the key's remaining lifetime.
	// A ttl < 0 means the key has no expiry set.
	IncrWithTTL(ctx context.Context, key string) (count int64, ttl time.Duration, err error)
}
