// Package cache memoizes resolver results. The store never changes after
// load, so an entry stays valid for the life of the process; the TTL only
// bounds memory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/vesselinfo/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Len() int
}

// IntentKey generates a cache key from the canonical JSON form of an intent.
func IntentKey(intent *model.QueryIntent) (string, error) {
	data, err := json.Marshal(intent)
	if err != nil {
		return "", fmt.Errorf("encode intent: %w", err)
	}
	hash := sha256.Sum256(data)
	return "vesselinfo:v1:" + hex.EncodeToString(hash[:]), nil
}
