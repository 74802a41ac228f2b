package atlas

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/imaging"
	"github.com/piwi3910/SpriteSlab/internal/model"
	"github.com/piwi3910/SpriteSlab/internal/queue"
)

// countingCache is a memory-backed cache whose file hash is derived from
// the path and counted per path.
type countingCache struct {
	*cache.Local

	mu        sync.Mutex
	hashCalls map[string]int
}

func newCountingCache(t *testing.T) *countingCache {
	t.Helper()
	local, err := cache.NewLocal(t.TempDir(), cache.NewMemoryStore())
	require.NoError(t, err)
	return &countingCache{Local: local, hashCalls: make(map[string]int)}
}

func (c *countingCache) HashFile(_ context.Context, path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashCalls[path]++
	return cache.HashString("content:" + path), nil
}

func (c *countingCache) hashCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hashCalls[path]
}

// fakeProcessor records calls instead of touching pixels. Trim returns the
// configured rect for the source whose scaled output is being trimmed, or
// the full bounds when none is configured.
type fakeProcessor struct {
	mu sync.Mutex

	sizes map[string]model.Size
	trims map[string]model.Rect

	sizeCalls  map[string]int
	scaleCalls map[string]int
	scaled     map[string]model.Size // output path -> size
	scaledFrom map[string]string     // output path -> input path
	combined   [][]imaging.Sprite

	failScale error
}

func newFakeProcessor(sizes map[string]model.Size) *fakeProcessor {
	return &fakeProcessor{
		sizes:      sizes,
		trims:      make(map[string]model.Rect),
		sizeCalls:  make(map[string]int),
		scaleCalls: make(map[string]int),
		scaled:     make(map[string]model.Size),
		scaledFrom: make(map[string]string),
	}
}

func (p *fakeProcessor) Size(_ context.Context, path string) (model.Size, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizeCalls[path]++
	s, ok := p.sizes[path]
	if !ok {
		return model.Size{}, fmt.Errorf("no such image %s", path)
	}
	return s, nil
}

func (p *fakeProcessor) Scale(_ context.Context, in, out string, size model.Size) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failScale != nil {
		return p.failScale
	}
	p.scaleCalls[in]++
	p.scaled[out] = size
	p.scaledFrom[out] = in
	return nil
}

func (p *fakeProcessor) Trim(_ context.Context, in, _ string) (model.Rect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r, ok := p.trims[p.scaledFrom[in]]; ok {
		return r, nil
	}
	s := p.scaled[in]
	return model.Rect{Width: s.Width, Height: s.Height}, nil
}

func (p *fakeProcessor) Combine(_ context.Context, sprites []imaging.Sprite, _, _ int, _ string, _ model.ExportConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.combined = append(p.combined, sprites)
	return nil
}

func (p *fakeProcessor) scaleCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scaleCalls[path]
}

func newEnv(t *testing.T, sizes map[string]model.Size) (*Env, *countingCache, *fakeProcessor) {
	t.Helper()
	c := newCountingCache(t)
	p := newFakeProcessor(sizes)
	return &Env{Cache: c, Processor: p, Queue: queue.New(4)}, c, p
}

// processedVariant runs a source with a single option set and returns its
// variant.
func processedVariant(t *testing.T, env *Env, path string, opts model.ConvertOptions) *Variant {
	t.Helper()
	src := NewSource(path, []model.ConvertOptions{opts})
	require.NoError(t, src.Process(context.Background(), env))
	v, ok := src.Variant(opts)
	require.True(t, ok)
	return v
}
