package cache

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/ppiankov/vesselinfo/internal/model"
)

// ResultCache stores encoded QueryResults keyed by intent. Entries are
// decoded on every hit so callers never share a result.
type ResultCache struct {
	backend Cache
	ttl     time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewResultCache wraps backend. A zero ttl uses the backend default.
func NewResultCache(backend Cache, ttl time.Duration) *ResultCache {
	return &ResultCache{backend: backend, ttl: ttl}
}

// Get returns the cached result for intent.
func (c *ResultCache) Get(intent *model.QueryIntent) (*model.QueryResult, bool) {
	key, err := IntentKey(intent)
	if err != nil {
		return nil, false
	}
	data, ok := c.backend.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	var res model.QueryResult
	if err := json.Unmarshal(data, &res); err != nil {
		_ = c.backend.Delete(key)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &res, true
}

// Put stores result for intent.
func (c *ResultCache) Put(intent *model.QueryIntent, result *model.QueryResult) error {
	key, err := IntentKey(intent)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.backend.Set(key, data, c.ttl)
}

// Stats returns hit and miss counts and the number of stored entries.
func (c *ResultCache) Stats() (hits, misses int64, entries int) {
	return c.hits.Load(), c.misses.Load(), c.backend.Len()
}
