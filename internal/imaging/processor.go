// Package imaging reads, scales, trims and combines sprite bitmaps.
package imaging

import (
	"context"

	"github.com/piwi3910/SpriteSlab/internal/model"
)

// Sprite is one bitmap to draw into a sheet at (X, Y).
type Sprite struct {
	Path string
	X    int
	Y    int
}

// Processor is the set of image operations the atlas builder needs. All
// paths are absolute; implementations write their outputs to the given
// output path and may overwrite it.
type Processor interface {
	// Size returns the pixel dimensions of the image at path.
	Size(ctx context.Context, path string) (model.Size, error)

	// Scale resamples in to exactly size and writes a PNG to out.
	Scale(ctx context.Context, in, out string, size model.Size) error

	// Trim crops fully transparent borders from in, writes the result to
	// out and returns the kept region relative to the input bounds. out may
	// equal in.
	Trim(ctx context.Context, in, out string) (model.Rect, error)

	// Combine draws sprites onto a transparent width x height canvas and
	// encodes it to out in the export format.
	Combine(ctx context.Context, sprites []Sprite, width, height int, out string, export model.ExportConfig) error
}
