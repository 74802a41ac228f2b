package imaging

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP decoder registration

	"github.com/piwi3910/SpriteSlab/internal/model"
)

// DefaultJPEGQuality is used when the export config leaves quality unset.
const DefaultJPEGQuality = 90

// Native implements Processor in pure Go. It decodes PNG, JPEG, GIF, WebP,
// BMP and TIFF and encodes sheets as PNG, JPEG, BMP or TIFF.
type Native struct{}

func NewNative() *Native {
	return &Native{}
}

func (n *Native) Size(ctx context.Context, path string) (model.Size, error) {
	if err := ctx.Err(); err != nil {
		return model.Size{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Size{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return model.Size{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return model.Size{Width: cfg.Width, Height: cfg.Height}, nil
}

func (n *Native) Scale(ctx context.Context, in, out string, size model.Size) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if size.Width <= 0 || size.Height <= 0 {
		return fmt.Errorf("invalid target size %dx%d", size.Width, size.Height)
	}
	src, err := decodeFile(in)
	if err != nil {
		return err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return writeImage(out, dst, model.ExportConfig{Format: model.FormatPNG})
}

func (n *Native) Trim(ctx context.Context, in, out string) (model.Rect, error) {
	if err := ctx.Err(); err != nil {
		return model.Rect{}, err
	}
	src, err := decodeFile(in)
	if err != nil {
		return model.Rect{}, err
	}

	b := src.Bounds()
	opaque := OpaqueBounds(src)
	if opaque.Empty() {
		// Nothing visible: keep a single pixel so the sprite stays packable.
		opaque = image.Rect(b.Min.X, b.Min.Y, b.Min.X+1, b.Min.Y+1)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, opaque.Dx(), opaque.Dy()))
	draw.Draw(dst, dst.Bounds(), src, opaque.Min, draw.Src)
	if err := writeImage(out, dst, model.ExportConfig{Format: model.FormatPNG}); err != nil {
		return model.Rect{}, err
	}

	return model.Rect{
		X:      opaque.Min.X - b.Min.X,
		Y:      opaque.Min.Y - b.Min.Y,
		Width:  opaque.Dx(),
		Height: opaque.Dy(),
	}, nil
}

func (n *Native) Combine(ctx context.Context, sprites []Sprite, width, height int, out string, export model.ExportConfig) error {
	if err := export.Validate(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid sheet size %dx%d", width, height)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, width, height))
	if export.Ext() == model.FormatJPEG {
		// JPEG has no alpha channel.
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}

	for _, s := range sprites {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := decodeFile(s.Path)
		if err != nil {
			return err
		}
		b := img.Bounds()
		r := image.Rect(s.X, s.Y, s.X+b.Dx(), s.Y+b.Dy())
		draw.Draw(canvas, r, img, b.Min, draw.Over)
	}

	return writeImage(out, canvas, export)
}

// OpaqueBounds returns the smallest rectangle containing every pixel with
// non-zero alpha. It is empty when the image is fully transparent.
func OpaqueBounds(img image.Image) image.Rectangle {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x+1)
			maxY = max(maxY, y+1)
		}
	}
	if maxX <= minX || maxY <= minY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX, maxY)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func encode(w io.Writer, img image.Image, export model.ExportConfig) error {
	switch export.Ext() {
	case model.FormatPNG:
		return png.Encode(w, img)
	case model.FormatJPEG:
		quality := export.Quality
		if quality == 0 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case model.FormatBMP:
		return bmp.Encode(w, img)
	case model.FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported export format %q", export.Format)
	}
}

// writeImage encodes img to a temp file next to path and renames it into
// place, so readers never observe a half-written image.
func writeImage(path string, img image.Image, export model.ExportConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := encode(tmp, img, export); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
