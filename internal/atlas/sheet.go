package atlas

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/engine"
	"github.com/piwi3910/SpriteSlab/internal/imaging"
	"github.com/piwi3910/SpriteSlab/internal/model"
)

// Sheet is one packed bin rendered to a single image.
type Sheet struct {
	Hash string

	Path       string
	Width      int
	Height     int
	Placements []model.Placement

	export model.ExportConfig
	rects  []engine.Placed[*Variant]
	width  int
	height int
}

type sheetEntry struct {
	Path       string            `json:"path"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Placements []model.Placement `json:"placements"`
}

// NewSheet creates a sheet for bin. Its hash covers the group hash, the
// position of every variant and the export configuration.
func NewSheet(g *Group, bin *engine.Bin[*Variant], c cache.Cache) (*Sheet, error) {
	s := &Sheet{
		export: g.Export,
		rects:  bin.Rects(),
		width:  bin.Width(),
		height: bin.Height(),
	}

	parts := make([]string, len(s.rects))
	for i, r := range s.rects {
		parts[i] = r.Payload.Path + "_" + strconv.Itoa(r.X) + "_" + strconv.Itoa(r.Y)
	}
	sort.Strings(parts)

	exportJSON, err := json.MarshalIndent(g.Export, "", "  ")
	if err != nil {
		return nil, err
	}
	s.Hash = c.HashString(g.Hash + strings.Join(parts, " ") + "_" + string(exportJSON))
	return s, nil
}

func (s *Sheet) basename() string {
	return s.Hash + "." + s.export.Ext()
}

func (s *Sheet) Process(ctx context.Context, env *Env) error {
	entry, err := cache.Fetch(ctx, env.Cache, CategorySpritesheet, s.Hash, sheetVersion, func(ctx context.Context) (sheetEntry, error) {
		return s.render(ctx, env)
	})
	if err != nil {
		return fmt.Errorf("combining sheet %s: %w", s.Hash, err)
	}
	s.Path = entry.Path
	s.Width = entry.Width
	s.Height = entry.Height
	s.Placements = entry.Placements
	return nil
}

func (s *Sheet) render(ctx context.Context, env *Env) (sheetEntry, error) {
	out := env.Cache.CachePath(s.basename())
	sprites := make([]imaging.Sprite, len(s.rects))
	for i, r := range s.rects {
		sprites[i] = imaging.Sprite{Path: r.Payload.Path, X: r.X, Y: r.Y}
	}
	if err := env.Processor.Combine(ctx, sprites, s.width, s.height, out, s.export); err != nil {
		return sheetEntry{}, err
	}
	return sheetEntry{
		Path:       out,
		Width:      s.width,
		Height:     s.height,
		Placements: s.placements(),
	}, nil
}

func (s *Sheet) placements() []model.Placement {
	records := make([]model.Placement, len(s.rects))
	for i, r := range s.rects {
		v := r.Payload
		p := model.Placement{
			Path:      v.Source.Path,
			Position:  model.Point{X: r.X, Y: r.Y},
			Dimension: model.Dimension{W: v.Width, H: v.Height},
		}
		if v.Trim != nil {
			p.Trim = &model.TrimRect{X: v.Trim.X, Y: v.Trim.Y, W: v.Trim.Width, H: v.Trim.Height}
		}
		records[i] = p
	}
	return records
}

// Output returns the manifest entry for the processed sheet.
func (s *Sheet) Output() model.SheetOutput {
	return model.SheetOutput{
		Sprites: s.Placements,
		Path:    s.Path,
		Hash:    s.Hash,
		Width:   s.Width,
		Height:  s.Height,
	}
}
