package main

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/SpriteSlab/internal/project"
)

func writeSprite(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{G: 255, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	level, err = parseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestEffectiveConcurrency(t *testing.T) {
	assert.Equal(t, runtime.NumCPU(), effectiveConcurrency(0))
	assert.Equal(t, runtime.NumCPU(), effectiveConcurrency(-3))
	assert.Equal(t, 5, effectiveConcurrency(5))
}

func TestEffectiveConcurrency_FromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"concurrency": 0}`), 0644))

	config, err := project.LoadAppConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0, config.Concurrency)
	assert.Equal(t, runtime.NumCPU(), effectiveConcurrency(config.Concurrency))
}

func TestOpenCache_InMemoryWritesArtifactsToCacheDir(t *testing.T) {
	dir := t.TempDir()

	c, err := openCache(dir, true)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Dir())
	assert.Equal(t, filepath.Join(dir, "sheet.png"), c.CachePath("sheet.png"))

	_, err = c.Lookup(context.Background(), "sprite", "k", 1, func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "entries"))
	assert.True(t, os.IsNotExist(err), "in-memory entries must not touch disk")
}

func TestRun_RequiresProject(t *testing.T) {
	err := run([]string{"--config", filepath.Join(t.TempDir(), "config.json")})
	assert.ErrorContains(t, err, "--project")
}

func TestRun_BuildsProject(t *testing.T) {
	dir := t.TempDir()
	writeSprite(t, filepath.Join(dir, "a.png"), 8, 8)
	writeSprite(t, filepath.Join(dir, "b.png"), 4, 4)

	projectPath := filepath.Join(dir, "atlases.yaml")
	require.NoError(t, os.WriteFile(projectPath, []byte(`name: test
atlases:
  - name: icons
    files:
      - path: "*.png"
    layout:
      max_width: 64
      max_height: 64
      padding: 1
`), 0644))

	outPath := filepath.Join(dir, "manifest.json")
	reportPath := filepath.Join(dir, "report.pdf")
	configPath := filepath.Join(dir, "config.json")

	err := run([]string{
		"--project", projectPath,
		"--out", outPath,
		"--report", reportPath,
		"--config", configPath,
		"--cache-dir", filepath.Join(dir, "cache"),
		"--log-level", "error",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var manifest struct {
		Atlases []struct {
			Name   string `json:"name"`
			Sheets []struct {
				Sprites []any `json:"sprites"`
			} `json:"sheets"`
		} `json:"atlases"`
	}
	require.NoError(t, json.Unmarshal(data, &manifest))
	require.Len(t, manifest.Atlases, 1)
	assert.Equal(t, "icons", manifest.Atlases[0].Name)
	require.Len(t, manifest.Atlases[0].Sheets, 1)
	assert.Len(t, manifest.Atlases[0].Sheets[0].Sprites, 2)

	info, err := os.Stat(reportPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	config, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(config), "atlases.yaml")
}
