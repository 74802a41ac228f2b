package atlas

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/engine"
	"github.com/piwi3910/SpriteSlab/internal/model"
	"github.com/piwi3910/SpriteSlab/internal/queue"
)

// Group is one atlas: a set of variants packed together under a shared
// layout and export configuration. It references variants owned by their
// sources and owns the sheets produced by packing.
type Group struct {
	Name     string
	Variants []*Variant
	Layout   model.LayoutConfig
	Export   model.ExportConfig
	Hash     string

	Sheets    []*Sheet
	Oversized []model.OversizedSprite
}

// NewGroup creates a group and derives its hash. The hash does not depend
// on the order of variants.
func NewGroup(name string, variants []*Variant, layout model.LayoutConfig, export model.ExportConfig, c cache.Cache) (*Group, error) {
	g := &Group{
		Name:     name,
		Variants: variants,
		Layout:   layout,
		Export:   export,
	}

	hashes := make([]string, len(variants))
	for i, v := range variants {
		hashes[i] = v.Hash()
	}
	sort.Strings(hashes)

	layoutJSON, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return nil, err
	}
	exportJSON, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, err
	}
	g.Hash = c.HashString(strings.Join(hashes, " ") + string(layoutJSON) + string(exportJSON))
	return g, nil
}

// Process packs the variants into bins and combines one sheet per bin.
func (g *Group) Process(ctx context.Context, env *Env) error {
	packer := engine.NewMultiBinPacker[*Variant](g.Layout.MaxWidth, g.Layout.MaxHeight, g.Layout.Padding)

	items := make([]engine.Item[*Variant], len(g.Variants))
	for i, v := range g.Variants {
		size := v.PackedSize()
		items[i] = engine.Item[*Variant]{Width: size.Width, Height: size.Height, Payload: v}
	}
	packer.AddAll(items)

	log := env.logger()
	for _, item := range packer.Oversized {
		g.Oversized = append(g.Oversized, model.OversizedSprite{
			Path:   item.Payload.Source.Path,
			Width:  item.Width,
			Height: item.Height,
		})
		if g.Layout.OversizedWarning {
			log.Warn("oversized sprite",
				"atlas", g.Name,
				"path", item.Payload.Source.Path,
				"size", fmt.Sprintf("%dx%d", item.Width, item.Height))
		}
	}

	g.Sheets = make([]*Sheet, 0, len(packer.Bins))
	futures := make([]*queue.Future[struct{}], 0, len(packer.Bins))
	for _, bin := range packer.Bins {
		sheet, err := NewSheet(g, bin, env.Cache)
		if err != nil {
			return err
		}
		g.Sheets = append(g.Sheets, sheet)

		f, err := queue.Add(env.Queue, func() (struct{}, error) {
			return struct{}{}, sheet.Process(ctx, env)
		})
		if err != nil {
			return fmt.Errorf("scheduling sheet for %s: %w", g.label(), err)
		}
		futures = append(futures, f)
	}
	_, err := queue.Await(ctx, futures)
	return err
}

func (g *Group) label() string {
	if g.Name == "" {
		return "atlas " + g.Hash
	}
	return g.Name
}

// Output returns the manifest entry for the processed group.
func (g *Group) Output() model.AtlasOutput {
	out := model.AtlasOutput{
		Name:      g.Name,
		Hash:      g.Hash,
		Sheets:    make([]model.SheetOutput, len(g.Sheets)),
		Oversized: g.Oversized,
	}
	for i, s := range g.Sheets {
		out.Sheets[i] = s.Output()
	}
	return out
}
