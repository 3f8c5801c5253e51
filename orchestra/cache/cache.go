package cache

import (
	"context"
	"io"
)

// CacheStore defines the interface for cache storage backends (e.g., S3).
type CacheStore interface {
	// Restore downloads and returns a reader for the cached content.
	// Returns nil, nil if the cache key doesn't exist.
	Restore(ctx context.Context, key string) (io.ReadCloser, error)

	// Persist uploads content from the reader to the cache.
	Persist(ctx context.Context, key string, reader io.Reader) error

	// Exists checks if a cache key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a cache entry.
	Delete(ctx context.Context, key string) error
}

// CacheStoreFactory creates a CacheStore from a URL.
type CacheStoreFactory func(url string) (CacheStore, error)

var cacheStoreFactories = make(map[string]CacheStoreFactory)

// RegisterCacheStore registers a cache store factory for a URL scheme.
func RegisterCacheStore(scheme string, factory CacheStoreFactory) {
	cacheStoreFactories[scheme] = factory
}

// GetCacheStore returns a cache store factory for the given scheme.
func GetCacheStore(scheme string) (CacheStoreFactory, bool) {
	factory, ok := cacheStoreFactories[scheme]
	return factory, ok
}
