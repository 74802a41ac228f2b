// SpriteSlab builds texture atlases from a YAML project.
//
// Build:
//   go build -o spriteslab ./cmd/spriteslab
//
// Usage:
//   spriteslab --project atlases.yaml --out manifest.json [--report report.pdf]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/export"
	"github.com/piwi3910/SpriteSlab/internal/imaging"
	"github.com/piwi3910/SpriteSlab/internal/pipeline"
	"github.com/piwi3910/SpriteSlab/internal/project"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		projectPath string
		outPath     string
		reportPath  string
		configPath  string
		cacheDir    string
		logLevel    string
		concurrency int
		maxQueued   int
		noCache     bool
	)

	flagSet := pflag.NewFlagSet("spriteslab", pflag.ContinueOnError)
	flagSet.StringVarP(&projectPath, "project", "p", "", "YAML project describing the atlases to build (required)")
	flagSet.StringVarP(&outPath, "out", "o", "manifest.json", "where to write the build manifest")
	flagSet.StringVar(&reportPath, "report", "", "also write a PDF report of the sheets to this path")
	flagSet.StringVar(&configPath, "config", project.DefaultConfigPath(), "application config file")
	flagSet.StringVar(&cacheDir, "cache-dir", "", "cache directory (overrides the config)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides the config)")
	flagSet.IntVarP(&concurrency, "concurrency", "j", 0, "max parallel image operations, 0 = number of CPUs (overrides the config)")
	flagSet.IntVar(&maxQueued, "max-queued", 0, "max queued operations before submissions fail (overrides the config)")
	flagSet.BoolVar(&noCache, "no-cache", false, "keep cache entries in memory for this run only; scaled sprites and sheets are still written to the cache directory")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if projectPath == "" {
		if flagSet.NArg() != 1 {
			return fmt.Errorf("--project is required")
		}
		projectPath = flagSet.Arg(0)
	}

	config, err := project.LoadAppConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagSet.Changed("cache-dir") {
		config.CacheDir = cacheDir
	}
	if flagSet.Changed("log-level") {
		config.LogLevel = logLevel
	}
	if flagSet.Changed("concurrency") {
		config.Concurrency = concurrency
	}
	if flagSet.Changed("max-queued") {
		config.MaxQueued = maxQueued
	}

	level, err := parseLevel(config.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proj, warnings, err := project.LoadProject(projectPath)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("sprite list warning", "warning", w)
	}
	for i := range proj.Atlases {
		config.ApplyToAtlas(&proj.Atlases[i])
	}

	c, err := openCache(config.CacheDir, noCache)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	logger.Debug("cache ready", "dir", c.Dir(), "persistent", !noCache)

	absProject, err := filepath.Abs(projectPath)
	if err != nil {
		return err
	}
	manifest, err := pipeline.Process(ctx, proj.Atlases, pipeline.Options{
		Concurrency: effectiveConcurrency(config.Concurrency),
		MaxQueued:   config.MaxQueued,
		Cache:       c,
		Processor:   imaging.NewNative(),
		Logger:      logger,
		Resolver:    pipeline.GlobResolver(filepath.Dir(absProject)),
	})
	if err != nil {
		return err
	}

	if err := project.SaveManifest(outPath, *manifest); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	logger.Info("manifest written", "path", outPath, "sheets", manifest.SheetCount())

	if reportPath != "" {
		if err := export.ExportReport(reportPath, *manifest); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logger.Info("report written", "path", reportPath)
	}

	stats := c.Stats()
	logger.Info("cache stats", "hits", stats.Hits, "misses", stats.Misses)

	project.AddRecentProject(&config, absProject)
	if err := project.SaveAppConfig(configPath, config); err != nil {
		logger.Warn("could not save config", "path", configPath, "error", err)
	}
	return nil
}

func openCache(dir string, inMemory bool) (*cache.Local, error) {
	if dir == "" {
		dir = project.DefaultCacheDir()
	}
	if inMemory {
		return cache.NewLocal(dir, cache.NewMemoryStore())
	}
	return cache.Open(dir)
}

// effectiveConcurrency maps a non-positive setting to the CPU count so that
// image work is never left unbounded.
func effectiveConcurrency(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
