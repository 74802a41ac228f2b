package export

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/SpriteSlab/internal/model"
)

func buildTestManifest() model.Manifest {
	return model.Manifest{
		RunID: "run-1",
		Atlases: []model.AtlasOutput{
			{
				Name: "ui",
				Hash: "atlas-hash",
				Sheets: []model.SheetOutput{
					{
						Path: "/nonexistent/sheet-a.png", Hash: "aaaaaaaaaaaaaaaa",
						Width: 300, Height: 210,
						Sprites: []model.Placement{
							{Path: "button.png", Position: model.Point{X: 0, Y: 0}, Dimension: model.Dimension{W: 200, H: 200}},
							{Path: "icon.png", Position: model.Point{X: 0, Y: 200}, Dimension: model.Dimension{W: 10, H: 10},
								Trim: &model.TrimRect{X: 1, Y: 1, W: 8, H: 8}},
						},
					},
					{
						Path: "/nonexistent/sheet-b.png", Hash: "bbbbbbbbbbbbbbbb",
						Width: 100, Height: 100,
						Sprites: []model.Placement{
							{Path: "panel.png", Dimension: model.Dimension{W: 100, H: 100}},
						},
					},
				},
			},
		},
	}
}

func assertNonEmptyFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("PDF file is empty")
	}
}

func TestExportReport_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")

	if err := ExportReport(path, buildTestManifest()); err != nil {
		t.Fatalf("ExportReport returned error: %v", err)
	}
	assertNonEmptyFile(t, path)
}

func TestExportReport_EmptyManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pdf")

	err := ExportReport(path, model.Manifest{RunID: "x"})
	if err == nil {
		t.Fatal("expected error for empty manifest, got nil")
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("no file should be written for an empty manifest")
	}
}

func TestExportReport_WithOversizedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problems.pdf")

	m := buildTestManifest()
	m.Atlases[0].Oversized = []model.OversizedSprite{{Path: "huge.png", Width: 4096, Height: 4096}}
	m.Atlases[0].Skipped = []string{"missing/*.png"}

	if err := ExportReport(path, m); err != nil {
		t.Fatalf("ExportReport returned error: %v", err)
	}
	assertNonEmptyFile(t, path)
}

func TestExportReport_AtlasWithoutSheets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nosheets.pdf")

	m := model.Manifest{
		RunID: "run-2",
		Atlases: []model.AtlasOutput{
			{Name: "", Oversized: []model.OversizedSprite{{Path: "huge.png", Width: 5000, Height: 10}}},
		},
	}
	if err := ExportReport(path, m); err != nil {
		t.Fatalf("ExportReport returned error: %v", err)
	}
	assertNonEmptyFile(t, path)
}

func TestExportReport_EmbedsSheetImage(t *testing.T) {
	dir := t.TempDir()
	sheetPath := filepath.Join(dir, "sheet.png")

	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	f, err := os.Create(sheetPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	m := model.Manifest{
		RunID: "run-3",
		Atlases: []model.AtlasOutput{{
			Name: "solid",
			Sheets: []model.SheetOutput{{
				Path: sheetPath, Hash: "cccc", Width: 20, Height: 10,
				Sprites: []model.Placement{{Path: "a.png", Dimension: model.Dimension{W: 20, H: 10}}},
			}},
		}},
	}

	withImage := filepath.Join(dir, "with.pdf")
	if err := ExportReport(withImage, m); err != nil {
		t.Fatalf("ExportReport returned error: %v", err)
	}

	m.Atlases[0].Sheets[0].Path = filepath.Join(dir, "gone.png")
	withoutImage := filepath.Join(dir, "without.pdf")
	if err := ExportReport(withoutImage, m); err != nil {
		t.Fatalf("ExportReport returned error: %v", err)
	}

	a, _ := os.Stat(withImage)
	b, _ := os.Stat(withoutImage)
	if a.Size() <= b.Size() {
		t.Errorf("expected embedded sheet to grow the report: %d <= %d", a.Size(), b.Size())
	}
}

func TestTotalEfficiency(t *testing.T) {
	m := model.Manifest{Atlases: []model.AtlasOutput{{
		Sheets: []model.SheetOutput{{
			Width: 10, Height: 10,
			Sprites: []model.Placement{{Dimension: model.Dimension{W: 5, H: 10}}},
		}},
	}}}
	if got := totalEfficiency(m); got != 50.0 {
		t.Errorf("totalEfficiency = %v, want 50", got)
	}
	if got := totalEfficiency(model.Manifest{}); got != 0 {
		t.Errorf("totalEfficiency of empty manifest = %v, want 0", got)
	}
}

func TestLabelFontSize(t *testing.T) {
	tests := []struct {
		w, h float64
		want float64
	}{
		{100, 50, 8},
		{30, 25, 7},
		{16, 9, 6},
	}
	for _, tt := range tests {
		if got := labelFontSize(tt.w, tt.h); got != tt.want {
			t.Errorf("labelFontSize(%v, %v) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
