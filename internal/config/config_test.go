package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeProjectConfig(t *testing.T, body string) string {
	t.Helper()
	projectDir := t.TempDir()
	stateDir := filepath.Join(projectDir, ProjectDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
	return projectDir
}

func TestNewDefaultsWhenMissing(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.ExtractionModel() != DefaultExtractionModel {
		t.Fatalf("expected default model %q, got %q", DefaultExtractionModel, c.ExtractionModel())
	}
	if c.DeliverAs() != DeliverFollowUp {
		t.Fatalf("expected followUp delivery, got %q", c.DeliverAs())
	}
	if c.Tracker() != DefaultTracker || c.Learn() != DefaultLearn {
		t.Fatalf("unexpected tool defaults: %q %q", c.Tracker(), c.Learn())
	}
	if !c.BridgeEnabled() {
		t.Fatalf("bridge should default to enabled")
	}
}

func TestNewParsesYaml(t *testing.T) {
	projectDir := writeProjectConfig(t, `
version: 1
extraction:
  model: gpt-5-mini
respond:
  deliver_as: steer
tools:
  tracker: tk
  learn: notes
bridge:
  enabled: false
  port: 9100
`)
	c, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.ExtractionModel() != "gpt-5-mini" {
		t.Fatalf("wrong model: %s", c.ExtractionModel())
	}
	if c.Project.Extraction.MaxTokens != DefaultMaxTokens {
		t.Fatalf("max tokens should default, got %d", c.Project.Extraction.MaxTokens)
	}
	if c.DeliverAs() != DeliverSteer {
		t.Fatalf("wrong delivery: %s", c.DeliverAs())
	}
	if c.Tracker() != "tk" || c.Learn() != "notes" {
		t.Fatalf("wrong tools: %s %s", c.Tracker(), c.Learn())
	}
	if c.BridgeEnabled() {
		t.Fatalf("expected bridge disabled")
	}
	if c.Project.Bridge.Port != 9100 || c.Project.Bridge.Host != DefaultBridgeHost {
		t.Fatalf("unexpected bridge settings: %+v", c.Project.Bridge)
	}
}

func TestNewValidation(t *testing.T) {
	projectDir := writeProjectConfig(t, `
version: 1
respond:
  deliver_as: shout
`)
	if _, err := New(projectDir); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	projectDir := writeProjectConfig(t, `
version: 1
extraction:
  model: claude-haiku-4-5
`)
	t.Setenv("AGENTX_EXTRACTION_MODEL", "gpt-5-mini")
	t.Setenv("AGENTX_DELIVER_AS", "steer")
	t.Setenv("AGENTX_BRIDGE_ENABLED", "false")
	t.Setenv("AGENTX_BRIDGE_PORT", "9001")
	c, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if c.ExtractionModel() != "gpt-5-mini" {
		t.Fatalf("env model override ignored: %s", c.ExtractionModel())
	}
	if c.DeliverAs() != DeliverSteer {
		t.Fatalf("env delivery override ignored: %s", c.DeliverAs())
	}
	if c.BridgeEnabled() {
		t.Fatalf("expected bridge disabled from env")
	}
	if c.Project.Bridge.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", c.Project.Bridge.Port)
	}
}

func TestInitDirWritesDefaultConfigOnce(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("InitDir: %v", err)
	}
	for _, sub := range []string{"logs", "extensions"} {
		if _, err := os.Stat(filepath.Join(projectDir, ProjectDirName, sub)); err != nil {
			t.Fatalf("expected %s dir: %v", sub, err)
		}
	}
	path := filepath.Join(projectDir, ProjectDirName, "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\ntools:\n  tracker: custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("second InitDir: %v", err)
	}
	c, err := New(projectDir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Tracker() != "custom" {
		t.Fatalf("InitDir must not overwrite an existing config, tracker=%s", c.Tracker())
	}
}
