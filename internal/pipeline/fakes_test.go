package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/imaging"
	"github.com/piwi3910/SpriteSlab/internal/model"
)

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

type fakeProcessor struct {
	mu sync.Mutex

	sizes      map[string]model.Size
	scaleCalls map[string]int
	combines   int
}

func newFakeProcessor(sizes map[string]model.Size) *fakeProcessor {
	return &fakeProcessor{sizes: sizes, scaleCalls: make(map[string]int)}
}

func (p *fakeProcessor) Size(_ context.Context, path string) (model.Size, error) {
	s, ok := p.sizes[path]
	if !ok {
		return model.Size{}, fmt.Errorf("no such image %s", path)
	}
	return s, nil
}

func (p *fakeProcessor) Scale(_ context.Context, in, _ string, _ model.Size) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scaleCalls[in]++
	return nil
}

func (p *fakeProcessor) Trim(context.Context, string, string) (model.Rect, error) {
	return model.Rect{}, fmt.Errorf("trim not expected")
}

func (p *fakeProcessor) Combine(context.Context, []imaging.Sprite, int, int, string, model.ExportConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.combines++
	return nil
}

func atlasOf(name string, layout model.LayoutConfig, paths ...string) model.AtlasSpec {
	spec := model.AtlasSpec{Name: name, Layout: layout}
	for _, p := range paths {
		spec.Files = append(spec.Files, model.FileSpec{Path: model.PathSpec{p}})
	}
	return spec
}
