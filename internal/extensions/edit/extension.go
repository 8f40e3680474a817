// Package edit provides /edit: open the last assistant message in the user's
// editor and send whatever they save.
package edit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/editor"
	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/runtime"
	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/procexec"
	"github.com/kingrea/agentx/internal/session"
)

const (
	extensionID      = "edit"
	extensionVersion = "1.0.0"

	// CustomType tags messages sent by /edit.
	CustomType = "edit"
	// TempPrefix names edit review files.
	TempPrefix = "agentx-edit-"
)

// Option customizes the extension.
type Option func(*Extension)

// WithEditorEnv replaces the editor preference lookup.
func WithEditorEnv(load func() (editor.Env, error)) Option {
	return func(e *Extension) {
		if load != nil {
			e.loadEnv = load
		}
	}
}

// WithTempDir sets where review files are written.
func WithTempDir(dir string) Option {
	return func(e *Extension) { e.tempDir = dir }
}

// Extension registers /edit.
type Extension struct {
	extension.Base
	exec    procexec.Runner
	logger  *zap.Logger
	loadEnv func() (editor.Env, error)
	tempDir string
}

// Register installs the edit extension factory.
func Register(reg *extension.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(extensionID, func(deps extension.Deps) (extension.Extension, error) {
		return New(deps)
	})
}

// New builds the extension.
func New(deps extension.Deps, opts ...Option) (*Extension, error) {
	if err := runtime.ValidateDeps(extensionID, deps); err != nil {
		return nil, err
	}
	exec := deps.Exec
	if exec == nil {
		exec = &procexec.ExecRunner{}
	}
	ext := &Extension{
		Base: extension.NewBase(extension.Info{
			ID:          extensionID,
			Name:        "Edit",
			Description: "Edit the last assistant message in $VISUAL or $EDITOR and send it back.",
			Version:     extensionVersion,
		}),
		exec:    exec,
		logger:  deps.Log(),
		loadEnv: editor.LoadEnv,
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
	return api.RegisterCommand(extension.Command{
		Name:        "edit",
		Description: "Edit the last assistant message and send it",
		Handler:     e.run,
	})
}

func (e *Extension) run(ctx context.Context, inv extension.Invocation) error {
	h := inv.Host
	ui, ok := h.UI()
	if !ok {
		h.Notify("edit needs an interactive terminal", host.LevelError)
		return nil
	}
	entries, err := h.Branch(ctx)
	if err != nil {
		h.Notify(fmt.Sprintf("Could not read the conversation: %v", err), host.LevelError)
		return nil
	}
	text, ok := session.LastAssistantText(entries)
	if !ok {
		h.Notify("No assistant message to edit", host.LevelError)
		return nil
	}
	prefs, err := e.loadEnv()
	if err != nil {
		h.Notify(err.Error(), host.LevelError)
		return nil
	}

	s := &editor.Session{
		Runner: &editor.Runner{Exec: e.exec, Terminal: ui.Terminal()},
		Prefix: TempPrefix,
		Dir:    e.tempDir,
	}
	review := s.Review(ctx, prefs, text)
	if review.CleanupErr != nil {
		e.logger.Warn("remove edit file", zap.Error(review.CleanupErr))
		h.Notify(fmt.Sprintf("Could not remove temp file: %v", review.CleanupErr), host.LevelWarning)
	}
	if !review.Decision.Send {
		h.Notify(review.Decision.Notice, review.Decision.Level)
		return nil
	}
	msg := host.Message{CustomType: CustomType, Content: review.Decision.Content, Display: true}
	if err := h.SendMessage(ctx, msg, host.Delivery{TriggerTurn: true}); err != nil {
		return fmt.Errorf("edit: send message: %w", err)
	}
	return nil
}

var _ extension.Extension = (*Extension)(nil)
