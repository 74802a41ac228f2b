package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/SpriteSlab/internal/model"
)

// ManifestVersion is written into every manifest file.
const ManifestVersion = "1.0.0"

// ManifestFile is the on-disk form of a run manifest.
type ManifestFile struct {
	Version   string `json:"version"`
	CreatedAt string `json:"created_at"`
	model.Manifest
}

// SaveManifest writes the manifest of a run to path as indented JSON.
func SaveManifest(path string, manifest model.Manifest) error {
	file := ManifestFile{
		Version:   ManifestVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Manifest:  manifest,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest file written by SaveManifest.
func LoadManifest(path string) (ManifestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ManifestFile{}, fmt.Errorf("failed to read manifest file: %w", err)
	}
	var file ManifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return ManifestFile{}, fmt.Errorf("failed to parse manifest file: %w", err)
	}
	if file.Version == "" {
		return ManifestFile{}, fmt.Errorf("invalid manifest file: missing version field")
	}
	return file, nil
}
