package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	appErrors "github.com/codam/web-greeter/pkg/errors"
)

// MemoryCacheRepository is the default process-local TTL cache. Values are
// stored as JSON so callers get copies and behaviour matches the Redis store.
type MemoryCacheRepository struct {
	cache *ttlcache.Cache[string, []byte]
	stop  sync.Once
}

// NewMemoryCacheRepository constructs an empty in-memory cache and starts
// its expiry loop. Call Close to stop it.
func NewMemoryCacheRepository() *MemoryCacheRepository {
	cache := ttlcache.New[string, []byte](
		// reads must not extend a TTL, same as Redis GET
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go cache.Start()
	return &MemoryCacheRepository{cache: cache}
}

// Get returns ErrCacheMiss for absent or expired keys.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	item := r.cache.Get(key)
	if item == nil {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(item.Value(), dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores value for ttl. A non-positive ttl keeps the value until overwritten.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	r.cache.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching a glob pattern ("*", "?", "[...]").
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}
	for _, key := range r.cache.Keys() {
		if ok, _ := path.Match(pattern, key); ok {
			r.cache.Delete(key)
		}
	}
	return nil
}

// Len reports the number of stored entries, including expired ones not yet evicted.
func (r *MemoryCacheRepository) Len() int {
	return r.cache.Len()
}

// Close stops the expiry loop. It is safe to call more than once.
func (r *MemoryCacheRepository) Close() error {
	r.stop.Do(r.cache.Stop)
	return nil
}
