package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jj-link/Pulsr/internal/cache"
)

// gaugeStore is the slice of the store the gauge updater needs.
type gaugeStore interface {
	CountPendingQueueItems() (int64, error)
}

// CacheWrapper caches gauge source queries so multi-instance deployments do
// not all hit the database on every scrape interval. A cache miss falls
// through to the store and repopulates the entry.
type CacheWrapper struct {
	store gaugeStore
	cache cache.Cache[int64]
}

// NewCacheWrapper creates a read-through cache for gauge queries.
func NewCacheWrapper(store gaugeStore, c cache.Cache[int64]) *CacheWrapper {
	return &CacheWrapper{store: store, cache: c}
}

// GetPendingQueueDepth returns the number of pending transmit queue items,
// served from cache when a value newer than ttl exists.
func (m *CacheWrapper) GetPendingQueueDepth(ctx context.Context, ttl time.Duration) (int64, error) {
	const key = "queue:pending"

	if count, err := m.cache.Get(ctx, key); err == nil {
		return count, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheUnavailable) {
		return 0, err
	}

	count, err := m.store.CountPendingQueueItems()
	if err != nil {
		return 0, err
	}

	// Best effort: a failed cache write just means the next call queries again
	_ = m.cache.Set(ctx, key, count, ttl)
	return count, nil
}
