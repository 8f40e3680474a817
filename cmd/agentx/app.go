package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/config"
	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions"
	"github.com/kingrea/agentx/internal/llm"
	"github.com/kingrea/agentx/internal/logging"
	"github.com/kingrea/agentx/internal/procexec"
	"github.com/kingrea/agentx/plugins"
)

// globalOptions are the persistent root flags.
type globalOptions struct {
	project string
	verbose bool
}

func (o *globalOptions) projectDir() (string, error) {
	dir := o.project
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	return abs, nil
}

// app is everything a subcommand needs once the project is loaded.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	models   *llm.Registry
	catalog  *extension.Catalog
}

// loadApp reads .agentx/.env, the project config, opens the log and installs
// built-in and plugin extensions. exec runs extension tools; nil means the
// process's own terminal streams.
func loadApp(opts *globalOptions, exec procexec.Runner) (*app, error) {
	dir, err := opts.projectDir()
	if err != nil {
		return nil, err
	}
	// .env must load before config so AGENTX_* overrides in it apply.
	envPath := filepath.Join(dir, config.ProjectDirName, ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}
	cfg, err := config.New(dir)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.LogsDir(), opts.verbose)
	if err != nil {
		return nil, err
	}
	creds, err := llm.LoadCredentials()
	if err != nil {
		closeLog()
		return nil, err
	}
	models := llm.NewRegistry(creds)

	reg := extension.NewRegistry()
	extensions.RegisterBuiltins(reg)
	if err := plugins.RegisterCommandPlugins(reg, cfg); err != nil {
		closeLog()
		return nil, err
	}
	if exec == nil {
		exec = &procexec.ExecRunner{Dir: cfg.ProjectDir}
	}
	catalog, err := extension.Load(reg, extension.Deps{
		Config: cfg,
		Exec:   exec,
		Logger: logger,
		Models: models,
	})
	if err != nil {
		closeLog()
		return nil, err
	}
	logger.Debug("agentx loaded",
		zap.String("project", cfg.ProjectDir),
		zap.Int("extensions", len(catalog.Extensions())))
	return &app{cfg: cfg, logger: logger, closeLog: closeLog, models: models, catalog: catalog}, nil
}

func (a *app) Close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}
