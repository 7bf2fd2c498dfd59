package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

// FileIndex persists the whole mapping to a single JSON file, rewritten
// after every Put.
type FileIndex struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]string
}

// NewFileIndex loads the mapping at path, starting fresh if the file is
// absent or unreadable.
func NewFileIndex(path string, logger *zap.Logger) *FileIndex {
	idx := &FileIndex{
		path:    path,
		logger:  logger.With(zap.String("component", "cache_index")),
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			idx.logger.Warn("failed to load cache file, starting fresh", zap.Error(err))
		}
		return idx
	}
	if err := json.Unmarshal(data, &idx.entries); err != nil {
		idx.logger.Warn("failed to parse cache file, starting fresh", zap.Error(err))
		idx.entries = make(map[string]string)
	}
	return idx
}

// Get returns the cached artifact path for key. A mapping whose file no
// longer exists is a miss; the stale entry itself is not purged.
func (idx *FileIndex) Get(ctx context.Context, key string) (string, bool) {
	idx.mu.RLock()
	path, ok := idx.entries[key]
	idx.mu.RUnlock()

	if !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		idx.logger.Debug("cache entry points at missing file",
			zap.String("key", key),
			zap.String("path", path))
		return "", false
	}
	return path, true
}

// Put stores the mapping and rewrites the whole file.
func (idx *FileIndex) Put(ctx context.Context, key, path string) error {
	idx.mu.Lock()
	idx.entries[key] = path
	data, err := json.MarshalIndent(idx.entries, "", "  ")
	idx.mu.Unlock()

	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(idx.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Len reports the number of entries, including stale ones.
func (idx *FileIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}
