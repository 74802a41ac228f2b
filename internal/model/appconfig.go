package model

import "runtime"

// AppConfig holds user-wide preferences and default settings.
type AppConfig struct {
	// Run settings
	CacheDir    string `json:"cache_dir"`   // empty = ~/.spriteslab/cache
	Concurrency int    `json:"concurrency"` // max parallel image operations, 0 = number of CPUs
	MaxQueued   int    `json:"max_queued"`  // backlog limit, 0 = unbounded
	LogLevel    string `json:"log_level"`   // "debug", "info", "warn", "error"

	// Defaults applied to atlases that leave them unset
	DefaultLayout LayoutConfig `json:"default_layout"`
	DefaultExport ExportConfig `json:"default_export"`

	RecentProjects []string `json:"recent_projects"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Concurrency:    runtime.NumCPU(),
		LogLevel:       "info",
		DefaultLayout:  DefaultLayout(),
		DefaultExport:  ExportConfig{Format: FormatPNG},
		RecentProjects: []string{},
	}
}

// ApplyToAtlas fills the unset layout and export fields of an atlas with the
// configured defaults. Padding and the oversized warning flag are only taken
// from the defaults when the atlas has no layout at all.
func (c AppConfig) ApplyToAtlas(a *AtlasSpec) {
	if a.Layout == (LayoutConfig{}) {
		a.Layout = c.DefaultLayout
	}
	if a.Layout.MaxWidth == 0 {
		a.Layout.MaxWidth = c.DefaultLayout.MaxWidth
	}
	if a.Layout.MaxHeight == 0 {
		a.Layout.MaxHeight = c.DefaultLayout.MaxHeight
	}
	if a.Export.Format == "" {
		a.Export.Format = c.DefaultExport.Format
	}
	if a.Export.Quality == 0 {
		a.Export.Quality = c.DefaultExport.Quality
	}
}
