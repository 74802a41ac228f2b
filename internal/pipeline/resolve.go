package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Resolver expands one path spec into concrete file paths.
type Resolver func(ctx context.Context, spec string) ([]string, error)

// IdentityResolver treats every spec as a single literal path.
func IdentityResolver(_ context.Context, spec string) ([]string, error) {
	return []string{spec}, nil
}

// GlobResolver expands shell patterns relative to baseDir. A spec without
// pattern characters is returned as-is, so a missing literal file fails
// later with a read error instead of silently matching nothing.
func GlobResolver(baseDir string) Resolver {
	return func(ctx context.Context, spec string) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pattern := spec
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}
		if !strings.ContainsAny(spec, "*?[") {
			return []string{filepath.Clean(pattern)}, nil
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", spec, err)
		}
		return matches, nil
	}
}
