package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"resultsync/internal/domain"
	"resultsync/internal/eventbus"
)

type snapshotFile struct {
	Version  int             `json:"version"`
	Entities []domain.Entity `json:"entities"`
}

// SaveFile writes every cached entity to path, replacing the file atomically
func (c *ObjectCache) SaveFile(path string) error {
	snap := snapshotFile{Version: 1, Entities: c.All("")}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	log.Printf("cache: saved %d entities to %s", len(snap.Entities), path)
	return nil
}

// LoadFile merges the entities stored at path into the cache, keeping their
// CachedAt stamps. A missing file loads nothing.
func (c *ObjectCache) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache file: %w", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("failed to parse cache file: %w", err)
	}
	for _, e := range snap.Entities {
		c.store(e)
	}

	if c.bus != nil {
		c.bus.Publish(eventbus.CacheLoadedEvent{Path: path, Count: len(snap.Entities)})
	}
	log.Printf("cache: loaded %d entities from %s", len(snap.Entities), path)
	return len(snap.Entities), nil
}
