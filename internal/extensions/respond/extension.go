// Package respond wires the reply pipeline into commands and shortcuts:
// /respond picks its mode from a trailing --tui or --editor flag, /answer
// always uses the form, /parrot always goes straight to the editor.
package respond

import (
	"context"

	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/runtime"
	"github.com/kingrea/agentx/internal/host"
	pipeline "github.com/kingrea/agentx/internal/respond"
)

const (
	extensionID      = "respond"
	extensionVersion = "1.0.0"
)

// Shortcut keys.
const (
	KeyFull       = "ctrl+shift+r"
	KeyFormOnly   = "ctrl+shift+a"
	KeyEditorOnly = "ctrl+shift+p"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, h host.Host, mode pipeline.Mode) error
}

// Option customizes the extension.
type Option func(*Extension)

// WithRunner replaces the pipeline, for tests.
func WithRunner(r Runner) Option {
	return func(e *Extension) {
		if r != nil {
			e.runner = r
		}
	}
}

// Extension registers the respond family of commands.
type Extension struct {
	extension.Base
	runner Runner
}

// Register installs the respond extension factory.
func Register(reg *extension.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(extensionID, func(deps extension.Deps) (extension.Extension, error) {
		return New(deps)
	})
}

// New builds the extension from deps.
func New(deps extension.Deps, opts ...Option) (*Extension, error) {
	if err := runtime.ValidateDeps(extensionID, deps); err != nil {
		return nil, err
	}
	deliverAs, err := host.ParseDeliverMode(deps.Config.DeliverAs())
	if err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{
		ExtractionModel: deps.Config.ExtractionModel(),
		MaxTokens:       int64(deps.Config.Project.Extraction.MaxTokens),
		DeliverAs:       deliverAs,
		Exec:            deps.Exec,
		Logger:          deps.Log(),
	}
	if deps.Models != nil {
		p.Models = deps.Models
	}
	ext := &Extension{
		Base: extension.NewBase(extension.Info{
			ID:          extensionID,
			Name:        "Respond",
			Description: "Answer the last assistant message through a question form and your editor.",
			Version:     extensionVersion,
		}),
		runner: p,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ext)
		}
	}
	return ext, nil
}

// Register implements extension.Extension.
func (e *Extension) Register(api extension.API) error {
	commands := []extension.Command{
		{
			Name:        "respond",
			Description: "Answer the last assistant message. --tui: form only, --editor: editor only",
			Handler: func(ctx context.Context, inv extension.Invocation) error {
				return e.runner.Run(ctx, inv.Host, pipeline.ParseMode(inv.Args))
			},
		},
		{Name: "answer", Description: "Answer extracted questions in a form", Handler: e.fixed(pipeline.ModeFormOnly)},
		{Name: "parrot", Description: "Reply by editing the last assistant message", Handler: e.fixed(pipeline.ModeEditorOnly)},
	}
	for _, cmd := range commands {
		if err := api.RegisterCommand(cmd); err != nil {
			return err
		}
	}
	shortcuts := []extension.Shortcut{
		{Key: KeyFull, Description: "Respond: form then editor", Handler: e.fixed(pipeline.ModeFull)},
		{Key: KeyFormOnly, Description: "Respond: form only", Handler: e.fixed(pipeline.ModeFormOnly)},
		{Key: KeyEditorOnly, Description: "Respond: editor only", Handler: e.fixed(pipeline.ModeEditorOnly)},
	}
	for _, sc := range shortcuts {
		if err := api.RegisterShortcut(sc); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extension) fixed(mode pipeline.Mode) extension.Handler {
	return func(ctx context.Context, inv extension.Invocation) error {
		return e.runner.Run(ctx, inv.Host, mode)
	}
}

var _ extension.Extension = (*Extension)(nil)
