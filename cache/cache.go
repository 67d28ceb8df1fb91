// Package cache is a small JSON file-backed key/value store, used to keep
// the broker access token across restarts.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Cache struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Cache {
	return &Cache{path: path}
}

// Get returns the value for key. A missing or unreadable cache file is
// treated the same as a missing key.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.load()
	v, ok := data[key]
	return v, ok
}

// Set stores key=value, creating the cache file if needed.
func (c *Cache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.load()
	data[key] = value
	return c.write(data)
}

// Delete removes key. Deleting a missing key is not an error.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.load()
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return c.write(data)
}

func (c *Cache) load() map[string]string {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return map[string]string{}
	}
	data := map[string]string{}
	if err := json.Unmarshal(raw, &data); err != nil {
		// Corrupt cache files are discarded rather than fatal.
		return map[string]string{}
	}
	return data
}

func (c *Cache) write(data map[string]string) error {
	if dir := filepath.Dir(c.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o600); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}
