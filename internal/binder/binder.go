// Package binder resolves target names to filesystem locations and records
// whether they exist and when they were last modified.
package binder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/specialistvlad/burstbuild/internal/target"
)

// Variables consulted when resolving a location.
const (
	VarLocate = "LOCATE"
	VarSearch = "SEARCH"
)

// DefaultCacheSize is the number of stat results kept by New.
const DefaultCacheSize = 4096

// Result is the outcome of binding one target.
type Result struct {
	Location string
	State    target.BindingState
	ModTime  time.Time
}

type fileStat struct {
	exists  bool
	modTime time.Time
}

// Binder binds targets relative to a root directory. It is safe for
// concurrent use.
type Binder struct {
	root  string
	cache *lru.Cache[string, fileStat]
	stat  func(string) (fs.FileInfo, error)
}

// New creates a binder rooted at root with a stat cache of the given size.
func New(root string, cacheSize int) (*Binder, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, fileStat](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating stat cache: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", root, err)
	}
	return &Binder{root: abs, cache: cache, stat: os.Stat}, nil
}

// Root returns the directory relative names are bound against.
func (b *Binder) Root() string { return b.root }

// Bind resolves t. It never fails: a location that cannot be stat-ed is
// reported as missing. NotFile targets stay unbound.
//
// Resolution order: an explicit location, then the LOCATE variable, then the
// first SEARCH directory that holds the file, then the root directory. An
// explicit location keeps the existence it was declared with; the file is
// only stat-ed for its timestamp.
func (b *Binder) Bind(t *target.Target) Result {
	if t.Flags.Has(target.FlagNotFile) {
		return Result{State: target.BindingUnbound}
	}
	if t.Explicit && t.Location != "" {
		loc := b.abs(t.Location)
		if !t.ExplicitExists {
			return Result{Location: loc, State: target.BindingMissing}
		}
		return Result{Location: loc, State: target.BindingExists, ModTime: b.lookup(loc).modTime}
	}
	return b.Stat(b.locate(t))
}

// Stat reports what is on disk at path. Relative paths are taken from the
// root.
func (b *Binder) Stat(path string) Result {
	loc := b.abs(path)
	st := b.lookup(loc)
	if !st.exists {
		return Result{Location: loc, State: target.BindingMissing}
	}
	return Result{Location: loc, State: target.BindingExists, ModTime: st.modTime}
}

func (b *Binder) locate(t *target.Target) string {
	if dirs, ok := t.Vars.Get(VarLocate); ok && len(dirs) > 0 {
		return b.abs(filepath.Join(dirs[0], t.Name))
	}
	if dirs, ok := t.Vars.Get(VarSearch); ok {
		for _, dir := range dirs {
			candidate := b.abs(filepath.Join(dir, t.Name))
			if b.lookup(candidate).exists {
				return candidate
			}
		}
	}
	return b.abs(t.Name)
}

func (b *Binder) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(b.root, p)
}

func (b *Binder) lookup(path string) fileStat {
	if st, ok := b.cache.Get(path); ok {
		return st
	}
	var st fileStat
	info, err := b.stat(path)
	switch {
	case err == nil:
		st = fileStat{exists: true, modTime: info.ModTime()}
	case errors.Is(err, fs.ErrNotExist):
		st = fileStat{}
	default:
		// Unreadable entries are treated as missing and not cached.
		return fileStat{}
	}
	b.cache.Add(path, st)
	return st
}

// Invalidate drops the cached stat of path, typically after a recipe wrote it.
func (b *Binder) Invalidate(path string) {
	if path != "" {
		b.cache.Remove(path)
	}
}

// Purge drops every cached stat.
func (b *Binder) Purge() {
	b.cache.Purge()
}
