package imaging

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/SpriteSlab/internal/model"
)

var (
	red  = color.NRGBA{R: 255, A: 255}
	blue = color.NRGBA{B: 255, A: 255}
)

// writePNG creates a w x h transparent PNG with rect filled in c.
func writePNG(t *testing.T, path string, w, h int, rect image.Rectangle, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

func TestNative_Size(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	writePNG(t, p, 12, 7, image.Rect(0, 0, 12, 7), red)

	size, err := NewNative().Size(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, model.Size{Width: 12, Height: 7}, size)
}

func TestNative_SizeNotAnImage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(p, []byte("not an image"), 0o644))
	_, err := NewNative().Size(context.Background(), p)
	assert.Error(t, err)
}

func TestNative_Scale(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "nested", "out.png")
	writePNG(t, in, 20, 10, image.Rect(0, 0, 20, 10), red)

	n := NewNative()
	require.NoError(t, n.Scale(context.Background(), in, out, model.Size{Width: 5, Height: 3}))

	size, err := n.Size(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, model.Size{Width: 5, Height: 3}, size)
}

func TestNative_ScaleInvalidSize(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writePNG(t, in, 4, 4, image.Rect(0, 0, 4, 4), red)
	err := NewNative().Scale(context.Background(), in, filepath.Join(dir, "out.png"), model.Size{})
	assert.Error(t, err)
}

func TestNative_Trim(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "s.png")
	writePNG(t, p, 10, 10, image.Rect(2, 3, 6, 8), red)

	n := NewNative()
	rect, err := n.Trim(context.Background(), p, p)
	require.NoError(t, err)
	assert.Equal(t, model.Rect{X: 2, Y: 3, Width: 4, Height: 5}, rect)

	size, err := n.Size(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, model.Size{Width: 4, Height: 5}, size)
}

func TestNative_TrimFullyOpaque(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "s.png")
	writePNG(t, p, 8, 6, image.Rect(0, 0, 8, 6), red)

	rect, err := NewNative().Trim(context.Background(), p, filepath.Join(dir, "t.png"))
	require.NoError(t, err)
	assert.Equal(t, model.Rect{Width: 8, Height: 6}, rect)
}

func TestNative_TrimFullyTransparent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "s.png")
	writePNG(t, p, 8, 6, image.Rectangle{}, red)

	rect, err := NewNative().Trim(context.Background(), p, p)
	require.NoError(t, err)
	assert.Equal(t, model.Rect{Width: 1, Height: 1}, rect)
}

func TestNative_CombinePNG(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writePNG(t, a, 4, 4, image.Rect(0, 0, 4, 4), red)
	writePNG(t, b, 2, 3, image.Rect(0, 0, 2, 3), blue)

	out := filepath.Join(dir, "sheet.png")
	err := NewNative().Combine(context.Background(), []Sprite{
		{Path: a, X: 0, Y: 0},
		{Path: b, X: 5, Y: 1},
	}, 8, 6, out, model.ExportConfig{})
	require.NoError(t, err)

	img := readPNG(t, out)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(3, 3)))
	assert.Equal(t, blue, color.NRGBAModel.Convert(img.At(6, 3)))
	_, _, _, alpha := img.At(7, 5).RGBA()
	assert.Zero(t, alpha, "uncovered pixels stay transparent")
}

func TestNative_CombineFormats(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	writePNG(t, a, 4, 4, image.Rect(0, 0, 4, 4), red)

	n := NewNative()
	for _, format := range []string{model.FormatJPEG, model.FormatBMP, model.FormatTIFF} {
		t.Run(format, func(t *testing.T) {
			out := filepath.Join(dir, "sheet."+format)
			err := n.Combine(context.Background(), []Sprite{{Path: a}}, 10, 9, out, model.ExportConfig{Format: format})
			require.NoError(t, err)

			size, err := n.Size(context.Background(), out)
			require.NoError(t, err)
			assert.Equal(t, model.Size{Width: 10, Height: 9}, size)
		})
	}
}

func TestNative_CombineRejectsUnknownFormat(t *testing.T) {
	err := NewNative().Combine(context.Background(), nil, 4, 4,
		filepath.Join(t.TempDir(), "x.gif"), model.ExportConfig{Format: "gif"})
	assert.Error(t, err)
}

func TestNative_CombineMissingSprite(t *testing.T) {
	dir := t.TempDir()
	err := NewNative().Combine(context.Background(), []Sprite{{Path: filepath.Join(dir, "missing.png")}},
		4, 4, filepath.Join(dir, "sheet.png"), model.ExportConfig{})
	assert.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "sheet.png"))
	assert.True(t, os.IsNotExist(statErr), "no sheet is written on failure")
}

func TestOpaqueBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))
	assert.True(t, OpaqueBounds(img).Empty())

	img.SetNRGBA(1, 2, red)
	img.SetNRGBA(3, 1, red)
	assert.Equal(t, image.Rect(1, 1, 4, 3), OpaqueBounds(img))
}
