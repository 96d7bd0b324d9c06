// Package cache provides the read-through configuration cache over the
// on-disk rule tables. Loads are lazy, parse each distinct source at most
// once, and replace entries atomically so concurrent readers always see a
// consistent snapshot table.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"superclaude/internal/logging"
	"superclaude/internal/rules"
)

// Fingerprint identifies one observed state of a table source.
type Fingerprint struct {
	Hash    uint64
	Size    int64
	ModTime time.Time
}

// Entry is one cached table. Entries are immutable once stored; a reload
// installs a fresh entry rather than mutating fields in place, so a
// caller already holding the table keeps its snapshot.
type Entry struct {
	Table       *rules.Table
	Fingerprint Fingerprint
	LoadedAt    time.Time
}

// Stats is a point-in-time snapshot of cache activity. Counters record
// how each lookup resolved: a miss corresponds to an actual source read,
// never to a lookup that another caller's load satisfied. Parses counts
// successful source parses, the independently verifiable half of the
// warm-read performance contract.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Parses        uint64
	ForcedReloads uint64
	Invalidations uint64
}

// Cache is the name-keyed configuration cache. Entries are created on
// first request, refreshed only on forced reload or detected source
// change, and evicted only at process teardown.
type Cache struct {
	dir       string
	hooksFrom string

	mu      sync.RWMutex
	entries map[string]*Entry
	group   singleflight.Group

	hits          atomic.Uint64
	misses        atomic.Uint64
	parses        atomic.Uint64
	forcedReloads atomic.Uint64
	invalidations atomic.Uint64
}

// Option customizes a Cache.
type Option func(*Cache)

// WithHooksTable changes which table HookConfig reads its sections from.
func WithHooksTable(name string) Option {
	return func(c *Cache) { c.hooksFrom = name }
}

// New creates a cache over the rule tables in dir. Tables live at
// <dir>/<name>.yml (or .yaml).
func New(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:       dir,
		hooksFrom: rules.TableHooks,
		entries:   make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the rules directory backing the cache.
func (c *Cache) Dir() string { return c.dir }

// Get is a convenience read: Load without forcing a reload.
func (c *Cache) Get(name string) (*rules.Table, error) {
	return c.Load(name, false)
}

// Load returns the table for name. A cache hit returns the cached
// snapshot without touching the source. On a miss, or when force is set,
// the source is read, parsed, validated, and installed as a fresh entry.
// Concurrent cold loads of the same name are collapsed into one parse.
func (c *Cache) Load(name string, force bool) (*rules.Table, error) {
	if !force {
		c.mu.RLock()
		entry, ok := c.entries[name]
		c.mu.RUnlock()
		if ok {
			c.hits.Add(1)
			return entry.Table, nil
		}
	} else {
		c.forcedReloads.Add(1)
	}

	table, err, _ := c.group.Do(name, func() (interface{}, error) {
		if !force {
			// Another caller may have finished the load while this one
			// was queued behind the flight; that resolution is a hit.
			c.mu.RLock()
			entry, ok := c.entries[name]
			c.mu.RUnlock()
			if ok {
				c.hits.Add(1)
				return entry.Table, nil
			}
			c.misses.Add(1)
		}
		return c.loadSource(name, force)
	})
	if err != nil {
		return nil, err
	}
	return table.(*rules.Table), nil
}

// loadSource reads and parses the backing file for name, installing a
// new entry on success.
func (c *Cache) loadSource(name string, force bool) (*rules.Table, error) {
	path, data, info, err := c.readSource(name)
	if err != nil {
		return nil, err
	}

	fp := Fingerprint{
		Hash:    xxh3.Hash(data),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	if !force {
		c.mu.RLock()
		entry, ok := c.entries[name]
		c.mu.RUnlock()
		if ok && entry.Fingerprint.Hash == fp.Hash {
			// Same content as the cached parse; no reason to parse again.
			return entry.Table, nil
		}
	}

	table := &rules.Table{}
	if err := yaml.Unmarshal(data, table); err != nil {
		return nil, &ConfigParseError{Name: name, Path: path, Err: err}
	}
	if err := rules.Validate(name, table); err != nil {
		return nil, &ConfigParseError{Name: name, Path: path, Err: err}
	}
	c.parses.Add(1)

	entry := &Entry{Table: table, Fingerprint: fp, LoadedAt: time.Now()}
	c.mu.Lock()
	c.entries[name] = entry
	c.mu.Unlock()

	logging.Get(logging.CategoryCache).Debug("loaded table %q from %s (forced=%v)", name, path, force)
	return table, nil
}

// readSource locates and reads the source file for name, trying the .yml
// extension first, then .yaml.
func (c *Cache) readSource(name string) (string, []byte, os.FileInfo, error) {
	var firstErr error
	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(c.dir, name+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			// A real read failure outranks a not-exist from the other
			// extension; only an all-missing result is ErrConfigNotFound.
			if firstErr == nil || (os.IsNotExist(firstErr) && !os.IsNotExist(err)) {
				firstErr = err
			}
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		return path, data, info, nil
	}
	if os.IsNotExist(firstErr) {
		return "", nil, nil, fmt.Errorf("table %q in %s: %w", name, c.dir, ErrConfigNotFound)
	}
	return "", nil, nil, fmt.Errorf("failed to read table %q: %w", name, firstErr)
}

// HookConfig returns the sub-section for a hook name from the hooks
// table. A hook without a section yields ErrSectionNotFound; callers
// must handle that as "no configuration".
func (c *Cache) HookConfig(hookName string) (rules.HookConfig, error) {
	table, err := c.Load(c.hooksFrom, false)
	if err != nil {
		return rules.HookConfig{}, err
	}
	cfg, ok := table.Hooks[hookName]
	if !ok {
		return rules.HookConfig{}, fmt.Errorf("hook %q: %w", hookName, ErrSectionNotFound)
	}
	return cfg, nil
}

// Entry returns the cache entry for name without loading.
func (c *Cache) Entry(name string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[name]
	return entry, ok
}

// Invalidate drops the entry for name; the next Load reparses the
// source. Readers holding the old table keep their snapshot.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	_, ok := c.entries[name]
	delete(c.entries, name)
	c.mu.Unlock()
	if ok {
		c.invalidations.Add(1)
		logging.Get(logging.CategoryCache).Debug("invalidated table %q", name)
	}
}

// Stale reports whether the cached entry for name no longer matches its
// source. A name that was never loaded is stale by definition; a source
// that disappeared is stale as well.
func (c *Cache) Stale(name string) bool {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		return true
	}
	_, data, _, err := c.readSource(name)
	if err != nil {
		return true
	}
	return xxh3.Hash(data) != entry.Fingerprint.Hash
}

// Stats returns a snapshot of cache activity counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Parses:        c.parses.Load(),
		ForcedReloads: c.forcedReloads.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// IsNotFound reports whether err is a missing-table error.
func IsNotFound(err error) bool { return errors.Is(err, ErrConfigNotFound) }

// IsSectionNotFound reports whether err is a missing hook section.
func IsSectionNotFound(err error) bool { return errors.Is(err, ErrSectionNotFound) }
