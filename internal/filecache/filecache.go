// Package filecache remembers the files an engine generated so a later
// clean can remove them. The list is persisted as TOML.
package filecache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

type document struct {
	Updated   time.Time `toml:"updated"`
	Generated []string  `toml:"generated"`
}

// Cache is a persisted set of generated file paths.
type Cache struct {
	mu    sync.Mutex
	path  string
	files map[string]struct{}
}

// Open loads the cache stored at path. A missing file yields an empty cache.
func Open(path string) (*Cache, error) {
	c := &Cache{path: path, files: make(map[string]struct{})}
	var doc document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("reading file cache %s: %w", path, err)
	}
	for _, f := range doc.Generated {
		c.files[f] = struct{}{}
	}
	return c, nil
}

// Path returns where the cache is persisted.
func (c *Cache) Path() string { return c.path }

// Add records generated files.
func (c *Cache) Add(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		if p != "" {
			c.files[p] = struct{}{}
		}
	}
}

// List returns the recorded files, sorted.
func (c *Cache) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.files))
	for f := range c.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Save writes the cache to disk.
func (c *Cache) Save() error {
	doc := document{Updated: time.Now().UTC(), Generated: c.List()}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating file cache directory: %w", err)
	}
	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing file cache: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		f.Close()
		return fmt.Errorf("encoding file cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing file cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}

// Clean removes every recorded file that still exists, forgets them all and
// saves the empty cache. It returns the files it removed.
func (c *Cache) Clean() ([]string, error) {
	var removed []string
	var errs []error
	for _, f := range c.List() {
		err := os.Remove(f)
		switch {
		case err == nil:
			removed = append(removed, f)
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	c.files = make(map[string]struct{})
	c.mu.Unlock()

	if err := c.Save(); err != nil {
		errs = append(errs, err)
	}
	return removed, errors.Join(errs...)
}
