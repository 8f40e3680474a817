// internal/config/config.go
//
// This package handles configuration and the .agentx directory structure.
// Every project that uses agentx gets a .agentx/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectDirName is the name of the directory we create in each project
	ProjectDirName = ".agentx"

	DefaultExtractionModel = "claude-haiku-4-5"
	DefaultMaxTokens       = 1024
	DefaultTracker         = "bd"
	DefaultLearn           = "lrn"
	DefaultBridgeHost      = "127.0.0.1"
	DefaultBridgePort      = 8765

	DeliverFollowUp = "followUp"
	DeliverSteer    = "steer"
)

const defaultProjectConfigYAML = `# agentx project configuration
version: 1

# Model used only to pull questions out of assistant replies.
extraction:
  model: claude-haiku-4-5
  max_tokens: 1024

# How respond/answer/parrot messages are injected: followUp or steer.
respond:
  deliver_as: followUp

# External CLIs the thin extensions shell out to.
tools:
  tracker: bd
  learn: lrn

bridge:
  enabled: true
  host: 127.0.0.1
  port: 8765
`

// ExtractionConfig selects the question extraction model.
type ExtractionConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens,omitempty"`
}

// RespondConfig tunes message delivery for the respond pipeline.
type RespondConfig struct {
	DeliverAs string `yaml:"deliver_as"`
}

// ToolsConfig names the external programs extensions invoke.
type ToolsConfig struct {
	Tracker string `yaml:"tracker"`
	Learn   string `yaml:"learn"`
}

// BridgeConfig captures event bridge preferences. Enabled is a pointer so an
// omitted key keeps the default.
type BridgeConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ProjectConfig models .agentx/config.yaml.
type ProjectConfig struct {
	Version    int              `yaml:"version"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Respond    RespondConfig    `yaml:"respond"`
	Tools      ToolsConfig      `yaml:"tools"`
	Bridge     BridgeConfig     `yaml:"bridge"`
}

// envOverrides are applied after the file is loaded.
type envOverrides struct {
	ExtractionModel string `env:"AGENTX_EXTRACTION_MODEL"`
	DeliverAs       string `env:"AGENTX_DELIVER_AS"`
	Tracker         string `env:"AGENTX_TRACKER"`
	Learn           string `env:"AGENTX_LEARN"`
	BridgeEnabled   *bool  `env:"AGENTX_BRIDGE_ENABLED"`
	BridgeHost      string `env:"AGENTX_BRIDGE_HOST"`
	BridgePort      int    `env:"AGENTX_BRIDGE_PORT"`
}

// Config holds the runtime configuration for agentx.
type Config struct {
	// ProjectDir is the directory agentx was invoked for
	ProjectDir string

	// StateDir is ProjectDir/.agentx
	StateDir string

	Project ProjectConfig
}

// InitDir creates the .agentx directory structure in the given project directory.
//
// Structure created:
// .agentx/
// ├── config.yaml
// ├── logs/         <- agentx.log
// └── extensions/   <- YAML / Go command extension definitions
func InitDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, ProjectDirName)
	dirs := []string{
		filepath.Join(stateDir, "logs"),
		filepath.Join(stateDir, "extensions"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(stateDir, "config.yaml"))
}

// New creates a Config populated with project settings. A missing config file
// yields defaults; environment overrides always apply.
func New(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, ProjectDirName),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// ExtensionsDir returns the directory holding plugin definitions
func (c *Config) ExtensionsDir() string {
	return filepath.Join(c.StateDir, "extensions")
}

// SessionsDir holds per-session markers that must outlive a single process.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.StateDir, "sessions")
}

// EnvFilePath returns the optional dotenv file with credentials.
func (c *Config) EnvFilePath() string {
	return filepath.Join(c.StateDir, ".env")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// ExtractionModel returns the configured extraction model identifier.
func (c *Config) ExtractionModel() string {
	return c.Project.Extraction.Model
}

// DeliverAs returns the respond delivery mode.
func (c *Config) DeliverAs() string {
	return c.Project.Respond.DeliverAs
}

// Tracker returns the process tracker CLI name.
func (c *Config) Tracker() string {
	return c.Project.Tools.Tracker
}

// Learn returns the learning-note CLI name.
func (c *Config) Learn() string {
	return c.Project.Tools.Learn
}

// BridgeEnabled reports whether the event bridge should serve.
func (c *Config) BridgeEnabled() bool {
	if c.Project.Bridge.Enabled == nil {
		return true
	}
	return *c.Project.Bridge.Enabled
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	p := &c.Project
	if o.ExtractionModel != "" {
		p.Extraction.Model = o.ExtractionModel
	}
	if o.DeliverAs != "" {
		p.Respond.DeliverAs = o.DeliverAs
	}
	if o.Tracker != "" {
		p.Tools.Tracker = o.Tracker
	}
	if o.Learn != "" {
		p.Tools.Learn = o.Learn
	}
	if o.BridgeEnabled != nil {
		p.Bridge.Enabled = o.BridgeEnabled
	}
	if o.BridgeHost != "" {
		p.Bridge.Host = o.BridgeHost
	}
	if o.BridgePort != 0 {
		p.Bridge.Port = o.BridgePort
	}
	p.normalize()
	if err := p.validate(); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Extraction.Model) == "" {
		pc.Extraction.Model = DefaultExtractionModel
	}
	if pc.Extraction.MaxTokens <= 0 {
		pc.Extraction.MaxTokens = DefaultMaxTokens
	}
	if strings.TrimSpace(pc.Respond.DeliverAs) == "" {
		pc.Respond.DeliverAs = DeliverFollowUp
	}
	if strings.TrimSpace(pc.Tools.Tracker) == "" {
		pc.Tools.Tracker = DefaultTracker
	}
	if strings.TrimSpace(pc.Tools.Learn) == "" {
		pc.Tools.Learn = DefaultLearn
	}
	if strings.TrimSpace(pc.Bridge.Host) == "" {
		pc.Bridge.Host = DefaultBridgeHost
	}
	if pc.Bridge.Port == 0 {
		pc.Bridge.Port = DefaultBridgePort
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Extraction.Model = strings.TrimSpace(pc.Extraction.Model)
	pc.Tools.Tracker = strings.TrimSpace(pc.Tools.Tracker)
	pc.Tools.Learn = strings.TrimSpace(pc.Tools.Learn)
	pc.Bridge.Host = strings.TrimSpace(pc.Bridge.Host)
	switch strings.ToLower(strings.TrimSpace(pc.Respond.DeliverAs)) {
	case "followup", "follow-up", "follow_up":
		pc.Respond.DeliverAs = DeliverFollowUp
	case "steer":
		pc.Respond.DeliverAs = DeliverSteer
	default:
		pc.Respond.DeliverAs = strings.TrimSpace(pc.Respond.DeliverAs)
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Extraction.Model == "" {
		return fmt.Errorf("extraction.model is required")
	}
	switch pc.Respond.DeliverAs {
	case DeliverFollowUp, DeliverSteer:
	default:
		return fmt.Errorf("respond.deliver_as must be 'followUp' or 'steer', got %q", pc.Respond.DeliverAs)
	}
	if pc.Tools.Tracker == "" || pc.Tools.Learn == "" {
		return fmt.Errorf("tools.tracker and tools.learn are required")
	}
	if pc.Bridge.Port <= 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port %d out of range", pc.Bridge.Port)
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
