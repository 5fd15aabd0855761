// Package cache stores raw query responses keyed by region and download
// type. Entries are immutable once written and are never deleted.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/osm-powerplants/internal/config"
	"github.com/Veraticus/osm-powerplants/internal/model"
)

// Entry is one cached response. Payload holds the response body verbatim.
type Entry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Key       string          `json:"key"`
	Query     string          `json:"query"`
	Payload   json.RawMessage `json:"payload"`
}

// Store persists entries. Get returns common.ErrNotFound on a miss.
// Concurrent writers of the same key resolve last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Close() error
}

// Key returns the cache key for a region and download type: the hex
// SHA-256 of the normalized descriptor, type and query shape.
func Key(region model.Region, downloadType model.DownloadType) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", region.Descriptor(), downloadType, region.Shape())))
	return hex.EncodeToString(sum[:])
}

// Open returns the store selected by cfg.Cache.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		return NewRedisStore(ctx, cfg.Cache.RedisAddr)
	default:
		return NewFileStore(cfg.CacheDir)
	}
}
