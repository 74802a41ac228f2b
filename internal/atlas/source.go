package atlas

import (
	"context"
	"fmt"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/model"
	"github.com/piwi3910/SpriteSlab/internal/queue"
)

// Source is one input image, identified by its resolved path. It owns one
// Variant per distinct option set requested for it.
type Source struct {
	Path string
	Hash string
	Size model.Size

	Variants []*Variant

	options []model.ConvertOptions
}

// NewSource creates a source for path. Option sets with equal fingerprints
// collapse into one variant.
func NewSource(path string, options []model.ConvertOptions) *Source {
	s := &Source{Path: path}
	seen := make(map[string]bool)
	for _, o := range options {
		n := o.Normalized()
		fp := n.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		s.options = append(s.options, n)
	}
	return s
}

// Process hashes the file, looks up its size and then processes every
// variant. Steps run in that order; each one is a separate queue task.
func (s *Source) Process(ctx context.Context, env *Env) error {
	hash, err := schedule(ctx, env.Queue, func() (string, error) {
		return env.Cache.HashFile(ctx, s.Path)
	})
	if err != nil {
		return fmt.Errorf("hashing %s: %w", s.Path, err)
	}
	s.Hash = hash

	size, err := schedule(ctx, env.Queue, func() (model.Size, error) {
		return cache.Fetch(ctx, env.Cache, CategorySprite, s.Hash, spriteVersion,
			func(ctx context.Context) (model.Size, error) {
				return env.Processor.Size(ctx, s.Path)
			})
	})
	if err != nil {
		return fmt.Errorf("reading size of %s: %w", s.Path, err)
	}
	s.Size = size

	s.Variants = make([]*Variant, 0, len(s.options))
	futures := make([]*queue.Future[struct{}], 0, len(s.options))
	for _, o := range s.options {
		v := &Variant{Source: s, Options: o}
		s.Variants = append(s.Variants, v)

		f, err := queue.Add(env.Queue, func() (struct{}, error) {
			return struct{}{}, v.Process(ctx, env)
		})
		if err != nil {
			return fmt.Errorf("scheduling %s: %w", s.Path, err)
		}
		futures = append(futures, f)
	}
	_, err = queue.Await(ctx, futures)
	return err
}

// Variant returns the processed variant for opts.
func (s *Source) Variant(opts model.ConvertOptions) (*Variant, bool) {
	fp := opts.Fingerprint()
	for _, v := range s.Variants {
		if v.Options.Fingerprint() == fp {
			return v, true
		}
	}
	return nil, false
}
