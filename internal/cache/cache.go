// Package cache stores detection results so an unchanged page is not sent
// to the correction service twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ppiankov/majalla/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey identifies a detection run: the same text sent to the same
// model with the same prompt version yields the same key
func CacheKey(modelName, text string) string {
	h := sha256.New()
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return "majalla:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg: nil when disabled, memory only
// without a disk directory, memory over disk otherwise
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL)
}

// GetResult loads a cached detection result
func GetResult(c Cache, key string) (model.DetectionResult, bool) {
	var result model.DetectionResult
	if c == nil {
		return result, false
	}
	data, ok := c.Get(key)
	if !ok {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return model.DetectionResult{}, false
	}
	return result, true
}

// PutResult stores a detection result with the cache's default TTL
func PutResult(c Cache, key string, result model.DetectionResult) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.Set(key, data, 0)
}
