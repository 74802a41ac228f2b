// Package cache provides the content-addressed result cache: expensive
// results are stored under a (category, key, version) triple, where the
// key is derived from content hashes, and recomputed only on a miss.
package cache

import (
	"context"
	"fmt"
)

// Cache is the contract the atlas builder relies on.
type Cache interface {
	// Lookup returns the entry stored under (category, key, version) or, on
	// a miss, runs recompute, stores its result and returns it.
	Lookup(ctx context.Context, category, key string, version int, recompute func(context.Context) ([]byte, error)) ([]byte, error)

	// CachePath returns the absolute path for a cache-owned artifact file.
	CachePath(basename string) string

	// HashFile returns the content hash of the file at path.
	HashFile(ctx context.Context, path string) (string, error)

	// HashString returns the hash of s.
	HashString(s string) string
}

// Fetch is a typed Lookup: the value produced by recompute is stored as
// CBOR and decoded back into T on a hit.
func Fetch[T any](ctx context.Context, c Cache, category, key string, version int, recompute func(context.Context) (T, error)) (T, error) {
	var value T
	data, err := c.Lookup(ctx, category, key, version, func(ctx context.Context) ([]byte, error) {
		v, err := recompute(ctx)
		if err != nil {
			return nil, err
		}
		return Marshal(v)
	})
	if err != nil {
		return value, err
	}
	if err := Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("decoding %s entry: %w", category, err)
	}
	return value, nil
}
