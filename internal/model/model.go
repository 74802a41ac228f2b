package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Rect is an axis-aligned rectangle in pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Size returns the width and height of the rectangle.
func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

// ConvertOptions describes how a source image is scaled and trimmed
// before it is packed. Zero values mean "use the default": a scale of 1
// and no maximum constraint.
type ConvertOptions struct {
	ScaleX     float64 `json:"scale_x,omitempty" yaml:"scale_x,omitempty"`
	ScaleY     float64 `json:"scale_y,omitempty" yaml:"scale_y,omitempty"`
	MaxWidth   int     `json:"max_width,omitempty" yaml:"max_width,omitempty"`
	MaxHeight  int     `json:"max_height,omitempty" yaml:"max_height,omitempty"`
	DontExtend bool    `json:"dont_extend,omitempty" yaml:"dont_extend,omitempty"`
	Trim       bool    `json:"trim,omitempty" yaml:"trim,omitempty"`
}

// Normalized returns a copy with defaults applied.
func (c ConvertOptions) Normalized() ConvertOptions {
	n := c
	if n.ScaleX <= 0 {
		n.ScaleX = 1
	}
	if n.ScaleY <= 0 {
		n.ScaleY = 1
	}
	if n.MaxWidth < 0 {
		n.MaxWidth = 0
	}
	if n.MaxHeight < 0 {
		n.MaxHeight = 0
	}
	return n
}

// Fingerprint returns a deterministic string identifying the normalized
// option set. Two option sets with equal fingerprints produce the same
// scaled bitmap from the same source.
func (c ConvertOptions) Fingerprint() string {
	n := c.Normalized()
	trim := ""
	if n.Trim {
		trim = "t"
	}
	return fmt.Sprintf("%s_%d_%d_%s_%s_%t",
		trim, n.MaxHeight, n.MaxWidth,
		strconv.FormatFloat(n.ScaleX, 'g', -1, 64),
		strconv.FormatFloat(n.ScaleY, 'g', -1, 64),
		n.DontExtend)
}

// PathSpec is one path, glob, or a list of them. In YAML and JSON it may be
// written either as a single string or as a sequence of strings.
type PathSpec []string

// UnmarshalYAML accepts a scalar or a sequence.
func (p *PathSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*p = PathSpec{value.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	default:
		return fmt.Errorf("line %d: path must be a string or a list of strings", value.Line)
	}
}

// UnmarshalJSON accepts a string or an array of strings.
func (p *PathSpec) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = PathSpec{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("path must be a string or a list of strings: %w", err)
	}
	*p = list
	return nil
}

// FileSpec requests one or more source images with a shared option set.
type FileSpec struct {
	Path    PathSpec       `json:"path" yaml:"path"`
	Options ConvertOptions `json:"options" yaml:"options"`
}

// LayoutConfig controls how sprites are packed into sheets.
type LayoutConfig struct {
	MaxWidth         int  `json:"max_width" yaml:"max_width"`
	MaxHeight        int  `json:"max_height" yaml:"max_height"`
	Padding          int  `json:"padding" yaml:"padding"`
	OversizedWarning bool `json:"oversized_warning" yaml:"oversized_warning"`
}

// Supported sheet output formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

// ExportConfig controls how combined sheets are encoded.
type ExportConfig struct {
	Format  string `json:"format,omitempty" yaml:"format,omitempty"`
	Quality int    `json:"quality,omitempty" yaml:"quality,omitempty"` // JPEG only, 1-100
}

// Ext returns the file extension for the configured format.
func (e ExportConfig) Ext() string {
	if e.Format == "" {
		return FormatPNG
	}
	return e.Format
}

// Validate reports an unsupported format or quality.
func (e ExportConfig) Validate() error {
	switch e.Ext() {
	case FormatPNG, FormatJPEG, FormatBMP, FormatTIFF:
	default:
		return fmt.Errorf("unsupported export format %q", e.Format)
	}
	if e.Quality < 0 || e.Quality > 100 {
		return fmt.Errorf("jpeg quality %d out of range 1-100", e.Quality)
	}
	return nil
}

// AtlasSpec is one atlas as written by the user, before path resolution.
type AtlasSpec struct {
	Name        string       `json:"name" yaml:"name"`
	Files       []FileSpec   `json:"files" yaml:"files"`
	SpritesFile string       `json:"sprites_file,omitempty" yaml:"sprites_file,omitempty"` // CSV or XLSX sprite list
	Layout      LayoutConfig `json:"layout" yaml:"layout"`
	Export      ExportConfig `json:"export" yaml:"export"`
}

// ResolvedFile is a single concrete source path with its options.
type ResolvedFile struct {
	Path    string
	Options ConvertOptions
}

// ResolvedAtlas is an AtlasSpec whose path specs were expanded.
type ResolvedAtlas struct {
	Name      string
	Files     []ResolvedFile
	Layout    LayoutConfig
	Export    ExportConfig
	Unmatched []string // path specs that resolved to no files
}

// Point is a position inside a sheet.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dimension is the rendered size of a sprite.
type Dimension struct {
	W int `json:"w"`
	H int `json:"h"`
}

// TrimRect is the non-empty region of a trimmed sprite, relative to its
// untrimmed bounds.
type TrimRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Placement records where one sprite landed inside a sheet.
type Placement struct {
	Path      string    `json:"path"`
	Position  Point     `json:"position"`
	Dimension Dimension `json:"dimension"`
	Trim      *TrimRect `json:"trim"`
}

// PackedWidth returns the width occupied in the sheet.
func (p Placement) PackedWidth() int {
	if p.Trim != nil {
		return p.Trim.W
	}
	return p.Dimension.W
}

// PackedHeight returns the height occupied in the sheet.
func (p Placement) PackedHeight() int {
	if p.Trim != nil {
		return p.Trim.H
	}
	return p.Dimension.H
}

// SheetOutput describes one combined sheet image.
type SheetOutput struct {
	Sprites []Placement `json:"sprites"`
	Path    string      `json:"path"`
	Hash    string      `json:"hash"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
}

// UsedArea returns the pixel area covered by sprites.
func (s SheetOutput) UsedArea() int {
	total := 0
	for _, p := range s.Sprites {
		total += p.PackedWidth() * p.PackedHeight()
	}
	return total
}

// TotalArea returns the sheet area.
func (s SheetOutput) TotalArea() int {
	return s.Width * s.Height
}

// Efficiency returns the usage percentage.
func (s SheetOutput) Efficiency() float64 {
	ta := s.TotalArea()
	if ta == 0 {
		return 0
	}
	return float64(s.UsedArea()) / float64(ta) * 100.0
}

// OversizedSprite is a sprite that could not fit in any sheet.
type OversizedSprite struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// AtlasOutput is the manifest entry for one atlas.
type AtlasOutput struct {
	Name      string            `json:"name,omitempty"`
	Hash      string            `json:"hash"`
	Sheets    []SheetOutput     `json:"sheets"`
	Oversized []OversizedSprite `json:"oversized,omitempty"`
	Skipped   []string          `json:"skipped,omitempty"` // references with no processed source
}

// TotalEfficiency returns the overall usage percentage across sheets.
func (a AtlasOutput) TotalEfficiency() float64 {
	var used, total int
	for _, s := range a.Sheets {
		used += s.UsedArea()
		total += s.TotalArea()
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100.0
}

// Manifest is the result of one run.
type Manifest struct {
	RunID   string        `json:"run_id"`
	Atlases []AtlasOutput `json:"atlases"`
}

// SheetCount returns the number of sheets across all atlases.
func (m Manifest) SheetCount() int {
	n := 0
	for _, a := range m.Atlases {
		n += len(a.Sheets)
	}
	return n
}

// Project ties a set of atlases together for save/load.
type Project struct {
	Name    string      `json:"name" yaml:"name"`
	Atlases []AtlasSpec `json:"atlases" yaml:"atlases"`
}

func NewProject() Project {
	return Project{
		Name:    "Untitled",
		Atlases: []AtlasSpec{},
	}
}

// DefaultLayout returns the layout used when a project leaves it unset.
func DefaultLayout() LayoutConfig {
	return LayoutConfig{
		MaxWidth:         2048,
		MaxHeight:        2048,
		Padding:          2,
		OversizedWarning: true,
	}
}
