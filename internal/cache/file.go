package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/osm-powerplants/internal/common"
	"github.com/Veraticus/osm-powerplants/internal/config"
)

// FileStore keeps one <key>.json file per entry in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	dir, err := config.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare cache directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file an entry with key is stored in.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads an entry. Reads take no lock.
func (s *FileStore) Get(_ context.Context, key string) (*Entry, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: cache entry %s: %v", common.ErrMalformedResponse, key, err)
	}
	if len(entry.Payload) == 0 {
		return nil, fmt.Errorf("%w: cache entry %s has no payload", common.ErrMalformedResponse, key)
	}
	return &entry, nil
}

// Put writes an entry through a temporary file and an atomic rename, so a
// reader never observes a partial file.
func (s *FileStore) Put(_ context.Context, entry *Entry) error {
	if err := checkKey(entry.Key); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, entry.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(entry.Key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to store cache file: %w", err)
	}

	slog.Debug("Cached response", "cache_key", entry.Key, "bytes", len(entry.Payload))
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}
