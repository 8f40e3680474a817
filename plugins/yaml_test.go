package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDefinition = `id: ready-work
version: 1.0.0
name: Ready work
command:
  name: ready
  description: Show unblocked tracker issues
run:
  program: bd
  args: [ready, --json=false]
message:
  custom_type: ready
  template: |
    Ready to pick up:
    {{.Stdout}}
empty_notice: Nothing is ready
`

func TestParseDefinitionYAML(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(sampleDefinition))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.ID != "ready-work" || def.Command.Name != "ready" || def.Run.Program != "bd" {
		t.Fatalf("unexpected definition: %+v", def)
	}
	if len(def.Run.Args) != 2 || def.Run.Args[1] != "--json=false" {
		t.Fatalf("unexpected args: %v", def.Run.Args)
	}
	if def.EmptyNotice != "Nothing is ready" {
		t.Fatalf("unexpected empty notice %q", def.EmptyNotice)
	}
}

func TestParseDefinitionYAMLErrors(t *testing.T) {
	for name, payload := range map[string]string{
		"empty":      "",
		"not yaml":   "id: [unterminated",
		"no program": "id: x\nversion: 1.0.0\n",
		"two docs":   sampleDefinition + "---\n" + sampleDefinition,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDefinitionYAML([]byte(payload)); err == nil {
				t.Fatalf("expected %s payload to fail", name)
			}
		})
	}
}

func TestLoadDefinitionDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "ready.yaml")
	if err := os.WriteFile(path, []byte(sampleDefinition), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write other file: %v", err)
	}
	defs, err := LoadDefinitionDir(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].Path != path {
		t.Fatalf("expected path %s, got %s", path, defs[0].Path)
	}
}

func TestLoadDefinitionDirMissing(t *testing.T) {
	defs, err := LoadDefinitionDir(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if defs != nil {
		t.Fatalf("expected nil slice for missing dir, got %v", defs)
	}
}

func TestLoadDefinitionDirMultiDocument(t *testing.T) {
	root := t.TempDir()
	second := "id: inbox-count\nversion: 0.1.0\nrun:\n  program: bd\n  args: [mail, count]\n"
	body := sampleDefinition + "---\n" + second + "---\n"
	path := filepath.Join(root, "tracker.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	defs, err := LoadDefinitionDir(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Definition.ID != "ready-work" || defs[0].Path != path+"#1" {
		t.Fatalf("unexpected first definition %s at %s", defs[0].Definition.ID, defs[0].Path)
	}
	if defs[1].Definition.Command.Name != "inbox-count" || defs[1].Path != path+"#2" {
		t.Fatalf("unexpected second definition %+v at %s", defs[1].Definition.Command, defs[1].Path)
	}
}

func TestLoadDefinitionDirReportsFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "broken.yaml")
	if err := os.WriteFile(path, []byte("id: broken\nversion: 1.0.0\n"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	_, err := LoadDefinitionDir(root)
	if err == nil || !strings.Contains(err.Error(), path) || !strings.Contains(err.Error(), "run.program is required") {
		t.Fatalf("expected file-scoped validation error, got %v", err)
	}
}
