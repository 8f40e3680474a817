package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kingrea/agentx/internal/config"
	"github.com/kingrea/agentx/internal/extension"
)

// DefinitionFile pairs a parsed definition with where it came from. Files
// holding several definitions get a "#n" suffix per definition.
type DefinitionFile struct {
	Definition ExtensionDefinition
	Path       string
}

type definitionLoader func(path string, data []byte) ([]DefinitionFile, error)

var loaders = map[string]definitionLoader{
	".yaml": loadYAMLDefinitions,
	".yml":  loadYAMLDefinitions,
	".go":   loadGoDefinitions,
}

// LoadDefinitionDir parses every YAML and Go definition file in dir, ordered
// by file name. Other files are ignored and a missing directory means no
// plugins.
func LoadDefinitionDir(dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	var files []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		load, ok := loaders[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		path := filepath.Join(trimmed, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("plugin: read %s: %w", path, err)
		}
		loaded, err := load(path, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, loaded...)
	}
	return files, nil
}

func sourced(path string, defs []ExtensionDefinition) []DefinitionFile {
	out := make([]DefinitionFile, len(defs))
	for i, def := range defs {
		src := path
		if len(defs) > 1 {
			src = fmt.Sprintf("%s#%d", path, i+1)
		}
		out[i] = DefinitionFile{Definition: def, Path: src}
	}
	return out
}

// RegisterCommandPlugins discovers definitions under .agentx/extensions and
// registers a command extension for each.
func RegisterCommandPlugins(reg *extension.Registry, cfg *config.Config) error {
	if reg == nil || cfg == nil {
		return nil
	}
	files, err := LoadDefinitionDir(cfg.ExtensionsDir())
	if err != nil {
		return err
	}
	seen := make(map[string]string, len(files))
	for _, file := range files {
		def := file.Definition
		if existing, ok := seen[def.ID]; ok {
			return fmt.Errorf("plugin: duplicate extension id %s (%s and %s)", def.ID, existing, file.Path)
		}
		seen[def.ID] = file.Path
		if err := reg.Register(def.ID, func(deps extension.Deps) (extension.Extension, error) {
			return newCommandExtension(def, deps)
		}); err != nil {
			return fmt.Errorf("plugin: register %s from %s: %w", def.ID, file.Path, err)
		}
	}
	return nil
}
