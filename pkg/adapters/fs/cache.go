package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/studywise/pkg/core"
)

const indexVersion = 2

// indexEntry is the cached parse of one file, valid while its mtime is unchanged.
type indexEntry struct {
	ID           string        `json:"id"`
	Content      string        `json:"content,omitempty"`
	Metadata     core.Metadata `json:"metadata,omitempty"`
	LastModified time.Time     `json:"lastModified"`
}

func (e *indexEntry) document() core.Document {
	meta := make(core.Metadata, len(e.Metadata))
	for k, v := range e.Metadata {
		meta[k] = v
	}
	return core.Document{ID: e.ID, Content: e.Content, Metadata: meta}
}

// index is the on-disk shape of .studywise/index.json.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // keyed by slash-separated relative path
}

// cache keeps parsed documents between List calls so unchanged files are not re-read.
type cache struct {
	path string

	mu      sync.RWMutex
	entries map[string]*indexEntry
	loaded  bool
	dirty   bool
}

func newCache(vaultPath, systemDir string) *cache {
	return &cache{
		path:    filepath.Join(vaultPath, systemDir, "index.json"),
		entries: make(map[string]*indexEntry),
	}
}

// Load reads the index once, keeping entries already refreshed in memory.
// A missing, corrupt or outdated index starts empty.
func (c *cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	c.loaded = true

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil || idx.Version != indexVersion || idx.Entries == nil {
		return nil
	}
	for p, e := range idx.Entries {
		if _, ok := c.entries[p]; !ok {
			c.entries[p] = e
		}
	}
	return nil
}

// Save persists the index if anything changed since the last save.
func (c *cache) Save() error {
	c.mu.RLock()
	if !c.dirty {
		c.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(index{Version: indexVersion, Entries: c.entries}, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := writeFileAtomic(c.path, data, 0644); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Get returns the entry for relPath if it was recorded at mtime.
func (c *cache) Get(relPath string, mtime time.Time) (*indexEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[relPath]
	if !ok || !entry.LastModified.Equal(mtime) {
		return nil, false
	}
	return entry, true
}

func (c *cache) Set(relPath string, entry *indexEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[relPath] = entry
	c.dirty = true
}

func (c *cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[relPath]; ok {
		delete(c.entries, relPath)
		c.dirty = true
	}
}

// Prune drops entries for files that no longer exist.
func (c *cache) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for p := range c.entries {
		if !keep[p] {
			delete(c.entries, p)
			c.dirty = true
		}
	}
}

// Snapshot copies the modification times known to the index, keyed by document ID.
func (c *cache) Snapshot() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]time.Time, len(c.entries))
	for _, e := range c.entries {
		out[e.ID] = e.LastModified
	}
	return out
}

func (c *cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
