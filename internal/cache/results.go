package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ResultCache stores serialized extraction results on disk keyed by a digest
// of the source text and the extraction settings.
type ResultCache struct {
	Dir string
	// StrictPerms, when true, enforces 0700 on the cache directory and 0600 on
	// files.
	StrictPerms bool
}

func (c *ResultCache) ensureDir() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if c.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(c.Dir, perm); err != nil {
		return err
	}
	if c.StrictPerms {
		if info, err := os.Stat(c.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(c.Dir, 0o700)
		}
	}
	return nil
}

func (c *ResultCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns cached bytes if present. A miss is not an error.
func (c *ResultCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	// Touch mtime so age-based purging keeps recently used entries.
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes to the cache.
func (c *ResultCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	return os.WriteFile(c.pathFor(key), data, mode)
}
