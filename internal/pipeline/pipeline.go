// Package pipeline drives an atlas build: it resolves path specs, processes
// every distinct source image once, then packs and combines each atlas.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/SpriteSlab/internal/atlas"
	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/imaging"
	"github.com/piwi3910/SpriteSlab/internal/model"
	"github.com/piwi3910/SpriteSlab/internal/queue"
)

var (
	ErrMissingCache     = errors.New("pipeline: cache is required")
	ErrMissingProcessor = errors.New("pipeline: image processor is required")
)

// Options configures a Pipeline. Concurrency and MaxQueued of zero mean
// unbounded. Logger and Resolver are optional.
type Options struct {
	Concurrency int
	MaxQueued   int

	Cache     cache.Cache
	Processor imaging.Processor
	Logger    *slog.Logger
	Resolver  Resolver
}

// Pipeline runs atlas builds. All work of a run, sprites and sheets alike,
// shares one queue.
type Pipeline struct {
	env      *atlas.Env
	resolver Resolver
	log      *slog.Logger
}

func New(opts Options) (*Pipeline, error) {
	if opts.Cache == nil {
		return nil, ErrMissingCache
	}
	if opts.Processor == nil {
		return nil, ErrMissingProcessor
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = IdentityResolver
	}
	return &Pipeline{
		env: &atlas.Env{
			Cache:     opts.Cache,
			Processor: opts.Processor,
			Queue:     queue.NewWithLimit(opts.Concurrency, opts.MaxQueued),
			Logger:    log,
		},
		resolver: resolver,
		log:      log,
	}, nil
}

// Queue returns the shared task queue, for diagnostics.
func (p *Pipeline) Queue() *queue.Queue {
	return p.env.Queue
}

// Process builds specs with a one-off pipeline.
func Process(ctx context.Context, specs []model.AtlasSpec, opts Options) (*model.Manifest, error) {
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, specs)
}

// Resolve expands every path spec of every atlas.
func (p *Pipeline) Resolve(ctx context.Context, specs []model.AtlasSpec) ([]model.ResolvedAtlas, error) {
	resolved := make([]model.ResolvedAtlas, len(specs))
	for i, spec := range specs {
		ra := model.ResolvedAtlas{
			Name:   spec.Name,
			Layout: spec.Layout,
			Export: spec.Export,
		}
		for _, file := range spec.Files {
			for _, pathSpec := range file.Path {
				paths, err := p.resolver(ctx, pathSpec)
				if err != nil {
					return nil, fmt.Errorf("resolving %s: %w", pathSpec, err)
				}
				if len(paths) == 0 {
					ra.Unmatched = append(ra.Unmatched, pathSpec)
					continue
				}
				for _, path := range paths {
					ra.Files = append(ra.Files, model.ResolvedFile{Path: path, Options: file.Options})
				}
			}
		}
		resolved[i] = ra
	}
	return resolved, nil
}

// Run builds every atlas and returns the manifest. Any failure fails the
// whole run and no manifest is returned.
func (p *Pipeline) Run(ctx context.Context, specs []model.AtlasSpec) (*model.Manifest, error) {
	for _, spec := range specs {
		if err := spec.Export.Validate(); err != nil {
			return nil, fmt.Errorf("atlas %q: %w", spec.Name, err)
		}
	}

	atlases, err := p.Resolve(ctx, specs)
	if err != nil {
		return nil, err
	}

	sources, order := collectSources(atlases)
	p.log.Info("processing sources", "sources", len(order), "atlases", len(atlases))
	if err := p.processSources(ctx, sources, order); err != nil {
		return nil, err
	}

	groups := make([]*atlas.Group, len(atlases))
	skipped := make([][]string, len(atlases))
	for i, ra := range atlases {
		variants, missing := p.variantsFor(ra, sources)
		skipped[i] = append(append([]string(nil), ra.Unmatched...), missing...)
		for _, ref := range skipped[i] {
			p.log.Warn("skipping unmatched sprite reference", "atlas", ra.Name, "path", ref)
		}

		g, err := atlas.NewGroup(ra.Name, variants, ra.Layout, ra.Export, p.env.Cache)
		if err != nil {
			return nil, fmt.Errorf("atlas %q: %w", ra.Name, err)
		}
		groups[i] = g
	}

	if err := p.processGroups(ctx, groups); err != nil {
		return nil, err
	}

	manifest := &model.Manifest{
		RunID:   uuid.NewString(),
		Atlases: make([]model.AtlasOutput, len(groups)),
	}
	for i, g := range groups {
		out := g.Output()
		out.Skipped = skipped[i]
		manifest.Atlases[i] = out
	}
	p.log.Info("atlases built", "run_id", manifest.RunID, "sheets", manifest.SheetCount())
	return manifest, nil
}

// collectSources creates one Source per distinct path, carrying every
// option set requested for it, in first-appearance order.
func collectSources(atlases []model.ResolvedAtlas) (map[string]*atlas.Source, []string) {
	options := make(map[string][]model.ConvertOptions)
	var order []string
	for _, ra := range atlases {
		for _, f := range ra.Files {
			if _, ok := options[f.Path]; !ok {
				order = append(order, f.Path)
			}
			options[f.Path] = append(options[f.Path], f.Options)
		}
	}

	sources := make(map[string]*atlas.Source, len(order))
	for _, path := range order {
		sources[path] = atlas.NewSource(path, options[path])
	}
	return sources, order
}

// processSources is the first wave. It returns once every source has
// finished, successfully or not.
func (p *Pipeline) processSources(ctx context.Context, sources map[string]*atlas.Source, order []string) error {
	var g errgroup.Group
	for _, path := range order {
		src := sources[path]
		g.Go(func() error {
			return src.Process(ctx, p.env)
		})
	}
	return g.Wait()
}

// processGroups is the second wave; it starts only after every source and
// variant is done.
func (p *Pipeline) processGroups(ctx context.Context, groups []*atlas.Group) error {
	var g errgroup.Group
	for _, group := range groups {
		g.Go(func() error {
			if err := group.Process(ctx, p.env); err != nil {
				return fmt.Errorf("atlas %q: %w", group.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// variantsFor maps an atlas's files to processed variants. A variant
// requested twice is packed once. References without a processed variant
// are returned as missing.
func (p *Pipeline) variantsFor(ra model.ResolvedAtlas, sources map[string]*atlas.Source) ([]*atlas.Variant, []string) {
	var variants []*atlas.Variant
	var missing []string
	seen := make(map[*atlas.Variant]bool)
	for _, f := range ra.Files {
		src, ok := sources[f.Path]
		if !ok {
			missing = append(missing, f.Path)
			continue
		}
		v, ok := src.Variant(f.Options)
		if !ok {
			missing = append(missing, f.Path)
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		variants = append(variants, v)
	}
	return variants, missing
}
