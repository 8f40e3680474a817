// Package extension defines how agentx extensions describe themselves and
// hook into the host: commands, keyboard shortcuts and lifecycle events.
package extension

import (
	"context"
	"fmt"

	"github.com/kingrea/agentx/internal/host"
)

// Info describes an extension's identity.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("extension: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("extension: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("extension: version is required for %s", i.ID)
	}
	return nil
}

// Extension is implemented by every built-in and plugin extension.
type Extension interface {
	Info() Info
	// Register installs the extension's handlers.
	Register(api API) error
}

// Base provides the Info half of Extension.
type Base struct {
	info Info
}

// NewBase seeds the helper with extension info.
func NewBase(info Info) Base {
	return Base{info: info}
}

// Info implements Extension.Info.
func (b Base) Info() Info {
	return b.info
}

// Invocation is what a command or shortcut handler receives.
type Invocation struct {
	Host host.Host
	// Args is the raw argument text after the command name.
	Args string
}

// Handler runs a command or shortcut. Outcomes the user should see are
// reported through Host.Notify; a returned error means the host itself failed.
type Handler func(ctx context.Context, inv Invocation) error

// Command is a named slash command.
type Command struct {
	Name        string
	Description string
	Handler     Handler
	Extension   string
}

// Shortcut binds a key chord to a handler.
type Shortcut struct {
	Key         string
	Description string
	Handler     Handler
	Extension   string
}

// BeforeAgentStartEvent fires when the user submits a prompt.
type BeforeAgentStartEvent struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

// BeforeAgentStartHandler may return a message to inject ahead of the turn.
type BeforeAgentStartHandler func(ctx context.Context, evt BeforeAgentStartEvent) (*host.Message, error)

// SessionShutdownEvent fires when a session ends.
type SessionShutdownEvent struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

// SessionShutdownHandler runs housekeeping. Errors are logged by the caller.
type SessionShutdownHandler func(ctx context.Context, evt SessionShutdownEvent) error

// API is the registration surface handed to Extension.Register.
type API interface {
	RegisterCommand(cmd Command) error
	RegisterShortcut(sc Shortcut) error
	OnBeforeAgentStart(h BeforeAgentStartHandler)
	OnSessionShutdown(h SessionShutdownHandler)
}
