package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const goPluginSource = `package main

import "fmt"

func ExtensionDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"id":      "go-plugin",
			"version": fmt.Sprintf("%d.0.0", 2),
			"command": map[string]any{"name": "standup"},
			"run": map[string]any{
				"program": "bd",
				"args":    []string{"list", "--mine"},
			},
			"empty_notice": "Nothing in progress",
		},
	}, nil
}`

func TestLoadDefinitionDirGoSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go-plugin.go"), []byte(goPluginSource), 0o644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	defs, err := LoadDefinitionDir(dir)
	if err != nil {
		t.Fatalf("load go defs: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	def := defs[0].Definition
	if def.ID != "go-plugin" || def.Version != "2.0.0" || def.Command.Name != "standup" {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if strings.Join(def.Run.Args, " ") != "list --mine" || def.EmptyNotice != "Nothing in progress" {
		t.Fatalf("unexpected run or notice: %+v", def)
	}
	if defs[0].Path != filepath.Join(dir, "go-plugin.go") {
		t.Fatalf("unexpected path %s", defs[0].Path)
	}
}

func TestLoadDefinitionDirGoMissingFunc(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("write broken plugin: %v", err)
	}
	if _, err := LoadDefinitionDir(dir); err == nil {
		t.Fatalf("expected error for missing ExtensionDefinitions function")
	}
}

func TestLoadDefinitionDirGoReturnedError(t *testing.T) {
	dir := t.TempDir()
	src := "package main\n\nimport \"errors\"\n\nfunc ExtensionDefinitions() ([]map[string]any, error) {\n\treturn nil, errors.New(\"not today\")\n}\n"
	if err := os.WriteFile(filepath.Join(dir, "err.go"), []byte(src), 0o644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	_, err := LoadDefinitionDir(dir)
	if err == nil || !strings.Contains(err.Error(), "not today") {
		t.Fatalf("expected returned error, got %v", err)
	}
}
