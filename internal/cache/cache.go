// Package cache provides the response cache for wx-relay.
//
// Weather payloads tolerate a short staleness window, so /data responses are
// cached per city for a small TTL. Two backends exist: Ristretto for normal
// operation and a noop passthrough when caching is disabled. Both are safe
// for concurrent use.
package cache

import (
	"context"
	"time"
)

// Cache is the interface the proxy handler stores responses behind.
type Cache interface {
	// Get retrieves a value. Returns ErrNotFound on a miss and ErrClosed
	// after Close.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetWithTTL stores a value that expires after ttl.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources. Idempotent; operations after Close
	// return ErrClosed.
	Close() error
}

// Stats reports cache effectiveness for the /health payload and logs.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeyCount  uint64 `json:"key_count"`
	Evictions uint64 `json:"evictions"`
}

// StatsProvider is implemented by backends that can report statistics.
type StatsProvider interface {
	Stats() Stats
}
