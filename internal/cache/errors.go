package cache

import "errors"

var (
	// ErrNotFound is returned on a cache miss.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned for operations on a closed cache.
	ErrClosed = errors.New("cache: closed")
)
