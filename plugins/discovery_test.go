package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/agentx/internal/config"
	"github.com/kingrea/agentx/internal/extension"
)

func initTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	if err := config.InitDir(root); err != nil {
		t.Fatalf("init project: %v", err)
	}
	cfg, err := config.New(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func writePlugin(t *testing.T, cfg *config.Config, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(cfg.ExtensionsDir(), name), []byte(body), 0o644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
}

func TestRegisterCommandPlugins(t *testing.T) {
	cfg := initTestConfig(t)
	writePlugin(t, cfg, "ready.yaml", sampleDefinition)
	writePlugin(t, cfg, "standup.go", goPluginSource)

	reg := extension.NewRegistry()
	if err := RegisterCommandPlugins(reg, cfg); err != nil {
		t.Fatalf("register plugins: %v", err)
	}
	if got := strings.Join(reg.IDs(), ","); got != "go-plugin,ready-work" {
		t.Fatalf("unexpected ids %s", got)
	}
	catalog, err := extension.Load(reg, extension.Deps{Config: cfg})
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	names := map[string]bool{}
	for _, cmd := range catalog.Commands() {
		names[cmd.Name] = true
	}
	if !names["ready"] || !names["standup"] {
		t.Fatalf("expected ready and standup commands, got %v", names)
	}
}

func TestRegisterCommandPluginsDuplicateID(t *testing.T) {
	cfg := initTestConfig(t)
	writePlugin(t, cfg, "a.yaml", sampleDefinition)
	writePlugin(t, cfg, "b.yml", sampleDefinition)

	err := RegisterCommandPlugins(extension.NewRegistry(), cfg)
	if err == nil || !strings.Contains(err.Error(), "duplicate extension id ready-work") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestRegisterCommandPluginsEmptyDir(t *testing.T) {
	cfg := initTestConfig(t)
	reg := extension.NewRegistry()
	if err := RegisterCommandPlugins(reg, cfg); err != nil {
		t.Fatalf("empty dir should not error: %v", err)
	}
	if len(reg.IDs()) != 0 {
		t.Fatalf("expected no plugins")
	}
}
