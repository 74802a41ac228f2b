package atlas

import (
	"context"
	"fmt"
	"math"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/model"
)

// Variant is a source image rendered with one option set.
type Variant struct {
	Source  *Source
	Options model.ConvertOptions

	Width  int
	Height int
	Trim   *model.Rect // nil when trimming removed nothing
	Path   string
}

type variantEntry struct {
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Trim   *model.Rect `json:"trim"`
	Path   string      `json:"path"`
}

// Hash identifies the variant: the source hash plus the option fingerprint.
func (v *Variant) Hash() string {
	return v.Source.Hash + "_" + v.Options.Fingerprint()
}

func (v *Variant) basename() string {
	return "scaled_sprite_" + v.Hash() + ".png"
}

// PackedSize is the area the variant occupies in a sheet.
func (v *Variant) PackedSize() model.Size {
	if v.Trim != nil {
		return v.Trim.Size()
	}
	return model.Size{Width: v.Width, Height: v.Height}
}

func (v *Variant) Process(ctx context.Context, env *Env) error {
	entry, err := cache.Fetch(ctx, env.Cache, CategoryScaled, v.Hash(), scaledVersion, func(ctx context.Context) (variantEntry, error) {
		return v.render(ctx, env)
	})
	if err != nil {
		return fmt.Errorf("scaling %s: %w", v.Source.Path, err)
	}
	v.Width = entry.Width
	v.Height = entry.Height
	v.Trim = entry.Trim
	v.Path = entry.Path
	return nil
}

func (v *Variant) render(ctx context.Context, env *Env) (variantEntry, error) {
	size := FitSize(v.Source.Size, v.Options)
	out := env.Cache.CachePath(v.basename())
	if err := env.Processor.Scale(ctx, v.Source.Path, out, size); err != nil {
		return variantEntry{}, err
	}

	entry := variantEntry{Width: size.Width, Height: size.Height, Path: out}
	if !v.Options.Trim {
		return entry, nil
	}
	trim, err := env.Processor.Trim(ctx, out, out)
	if err != nil {
		return variantEntry{}, err
	}
	entry.Trim = normalizeTrim(trim, size)
	return entry, nil
}

// normalizeTrim drops a trim that kept the full bounds.
func normalizeTrim(trim model.Rect, size model.Size) *model.Rect {
	if trim.X == 0 && trim.Y == 0 && trim.Width == size.Width && trim.Height == size.Height {
		return nil
	}
	return &trim
}

// FitSize computes the rendered size of a source under opts. Scale factors
// apply first. When both maximums are set and extension is allowed, the
// image grows to fill them. Any dimension still over its maximum is then
// shrunk, width first, keeping the aspect ratio. Results are rounded and
// never smaller than one pixel.
func FitSize(src model.Size, opts model.ConvertOptions) model.Size {
	if src.Width <= 0 || src.Height <= 0 {
		return model.Size{Width: 1, Height: 1}
	}
	o := opts.Normalized()
	w := float64(src.Width) * o.ScaleX
	h := float64(src.Height) * o.ScaleY
	maxW := float64(o.MaxWidth)
	maxH := float64(o.MaxHeight)

	if o.MaxWidth > 0 && o.MaxHeight > 0 && !o.DontExtend {
		if w < maxW {
			h = maxW * h / w
			w = maxW
		}
		if h < maxH {
			w = maxH * w / h
			h = maxH
		}
	}
	if o.MaxWidth > 0 && w > maxW {
		h = maxW * h / w
		w = maxW
	}
	if o.MaxHeight > 0 && h > maxH {
		w = maxH * w / h
		h = maxH
	}

	return model.Size{
		Width:  max(1, int(math.Round(w))),
		Height: max(1, int(math.Round(h))),
	}
}
