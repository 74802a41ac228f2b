package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Local is the default Cache: entries live in a Store and artifact files
// live directly under dir. Concurrent lookups of the same entry share a
// single recompute.
type Local struct {
	dir   string
	store Store
	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats counts lookups served from the store and lookups that recomputed.
type Stats struct {
	Hits   int64
	Misses int64
}

// NewLocal creates a cache writing artifacts to dir and entries to store.
func NewLocal(dir string, store Store) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Local{dir: abs, store: store}, nil
}

// Open creates a disk-backed cache rooted at dir.
func Open(dir string) (*Local, error) {
	return NewLocal(dir, NewFileStore(filepath.Join(dir, "entries")))
}

func (c *Local) Lookup(ctx context.Context, category, key string, version int, recompute func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok, err := c.store.Get(category, key, version); err != nil {
		return nil, err
	} else if ok {
		c.hits.Add(1)
		return data, nil
	}

	flightKey := category + "\x00" + strconv.Itoa(version) + "\x00" + key
	v, err, _ := c.group.Do(flightKey, func() (any, error) {
		// A caller that lost the race may arrive after the winner stored.
		if data, ok, err := c.store.Get(category, key, version); err != nil {
			return nil, err
		} else if ok {
			c.hits.Add(1)
			return data, nil
		}

		c.misses.Add(1)
		data, err := recompute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(category, key, version, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Local) CachePath(basename string) string {
	return filepath.Join(c.dir, basename)
}

func (c *Local) HashFile(ctx context.Context, path string) (string, error) {
	return HashFile(ctx, path)
}

func (c *Local) HashString(s string) string {
	return HashString(s)
}

// Dir returns the directory holding artifact files.
func (c *Local) Dir() string {
	return c.dir
}

func (c *Local) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
