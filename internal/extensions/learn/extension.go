// Package learn records and recalls project learnings through the learn CLI.
package learn

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/agentx/internal/extension"
	"github.com/kingrea/agentx/internal/extensions/runtime"
	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/procexec"
)

const (
	extensionID      = "learn"
	extensionVersion = "1.0.0"

	// CustomType tags /learnings output.
	CustomType = "learnings"

	UsageNotice = "Usage: /learn <note>"
	SavedNotice = "Learning saved"
	EmptyNotice = "No learnings recorded yet"
)

// Extension registers /learn and /learnings.
type Extension struct {
	extension.Base
	program string
	exec    procexec.Runner
}

// Register installs the learn extension factory.
func Register(reg *extension.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(extensionID, func(deps extension.Deps) (extension.Extension, error) {
		return New(deps)
	})
}

// New builds the extension.
func New(deps extension.Deps) (*Extension, error) {
	if err := runtime.ValidateDeps(extensionID, deps); err != nil {
		return nil, err
	}
	return &Extension{
		Base: extension.NewBase(extension.Info{
			ID:          extensionID,
			Name:        "Learn",
			Description: "Save and list project learnings.",
			Version:     extensionVersion,
		}),
		program: deps.Config.Learn(),
		exec:    deps.Exec,
	}, nil
}

// Register implements extension.Extension.
func (e *Extension) Register(api extension.API) error {
	if err := api.RegisterCommand(extension.Command{
		Name:        "learn",
		Description: "Save a learning for this project",
		Handler:     e.add,
	}); err != nil {
		return err
	}
	return api.RegisterCommand(extension.Command{
		Name:        "learnings",
		Description: "Show saved learnings",
		Handler:     e.list,
	})
}

func (e *Extension) add(ctx context.Context, inv extension.Invocation) error {
	note := strings.TrimSpace(inv.Args)
	if note == "" {
		inv.Host.Notify(UsageNotice, host.LevelWarning)
		return nil
	}
	if _, err := runtime.RunTool(ctx, e.exec, e.program, "add", note); err != nil {
		inv.Host.Notify(fmt.Sprintf("Could not save learning: %v", err), host.LevelError)
		return nil
	}
	inv.Host.Notify(SavedNotice, host.LevelInfo)
	return nil
}

func (e *Extension) list(ctx context.Context, inv extension.Invocation) error {
	res, err := runtime.RunTool(ctx, e.exec, e.program, "list")
	if err != nil {
		inv.Host.Notify(fmt.Sprintf("Could not list learnings: %v", err), host.LevelError)
		return nil
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		inv.Host.Notify(EmptyNotice, host.LevelInfo)
		return nil
	}
	msg := host.Message{CustomType: CustomType, Content: out, Display: true}
	if err := inv.Host.SendMessage(ctx, msg, host.Delivery{}); err != nil {
		return fmt.Errorf("learn: send message: %w", err)
	}
	return nil
}
