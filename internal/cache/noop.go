package cache

import (
	"context"
	"time"
)

// noopCache is the passthrough backend used when caching is disabled.
// Every Get is a miss and writes are discarded.
type noopCache struct{}

var _ Cache = (*noopCache)(nil)

// NewNoop returns a cache that stores nothing.
func NewNoop() Cache {
	return &noopCache{}
}

func (n *noopCache) Get(ctx context.Context, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

func (n *noopCache) SetWithTTL(ctx context.Context, _ string, _ []byte, _ time.Duration) error {
	return ctx.Err()
}

func (n *noopCache) Delete(ctx context.Context, _ string) error {
	return ctx.Err()
}

func (n *noopCache) Close() error {
	return nil
}
