// Package project loads and saves project files, the application config and
// run manifests.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/piwi3910/SpriteSlab/internal/importer"
	"github.com/piwi3910/SpriteSlab/internal/model"
)

// SaveProject writes a project to path as YAML.
func SaveProject(path string, p model.Project) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadProject reads a YAML project file. Atlases that name a sprites file
// get its rows appended to their file list; relative paths in the sprites
// file are rewritten to be relative to the project directory. Import
// warnings are returned alongside the project.
func LoadProject(path string) (model.Project, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Project{}, nil, err
	}

	p := model.NewProject()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Project{}, nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	baseDir := filepath.Dir(path)
	var warnings []string
	for i := range p.Atlases {
		a := &p.Atlases[i]
		if err := a.Export.Validate(); err != nil {
			return model.Project{}, nil, fmt.Errorf("atlas %q: %w", a.Name, err)
		}
		if a.SpritesFile == "" {
			continue
		}

		files, w, err := loadSpritesFile(baseDir, a.SpritesFile)
		if err != nil {
			return model.Project{}, nil, fmt.Errorf("atlas %q: %w", a.Name, err)
		}
		for _, msg := range w {
			warnings = append(warnings, fmt.Sprintf("%s: %s", a.SpritesFile, msg))
		}
		a.Files = append(a.Files, files...)
	}
	return p, warnings, nil
}

func loadSpritesFile(baseDir, spritesFile string) ([]model.FileSpec, []string, error) {
	listPath := spritesFile
	if !filepath.IsAbs(listPath) {
		listPath = filepath.Join(baseDir, listPath)
	}

	result := importer.Import(listPath)
	if len(result.Errors) > 0 {
		return nil, nil, fmt.Errorf("sprites file %s: %s", spritesFile, strings.Join(result.Errors, "; "))
	}

	listDir := filepath.Dir(spritesFile)
	for i := range result.Files {
		for j, path := range result.Files[i].Path {
			if !filepath.IsAbs(path) {
				result.Files[i].Path[j] = filepath.Join(listDir, path)
			}
		}
	}
	return result.Files, result.Warnings, nil
}
