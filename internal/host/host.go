// Package host declares what agentx needs from the coding-agent host it plugs
// into: the conversation branch, the selected model, message delivery,
// notifications and an optional interactive UI.
package host

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/agentx/internal/session"
)

// Level is a notification severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// DeliverMode selects how an outgoing message joins the conversation.
type DeliverMode string

const (
	// DeliverFollowUp queues the message after the current turn.
	DeliverFollowUp DeliverMode = "followUp"
	// DeliverSteer redirects the current turn.
	DeliverSteer DeliverMode = "steer"
)

// ParseDeliverMode maps a configured value onto a DeliverMode.
func ParseDeliverMode(value string) (DeliverMode, error) {
	switch DeliverMode(value) {
	case DeliverFollowUp, DeliverSteer:
		return DeliverMode(value), nil
	case "":
		return DeliverFollowUp, nil
	}
	return "", fmt.Errorf("host: unknown delivery mode %q", value)
}

// Message is a custom chat message sent back into the conversation or
// injected before an agent turn.
type Message struct {
	CustomType string `json:"custom_type"`
	Content    string `json:"content"`
	Display    bool   `json:"display"`
}

// Delivery controls how the host handles a sent message.
type Delivery struct {
	TriggerTurn bool        `json:"trigger_turn"`
	DeliverAs   DeliverMode `json:"deliver_as,omitempty"`
}

// Host is the slice of the agent host that extensions use.
type Host interface {
	// Branch returns the visible conversation, oldest first.
	Branch(ctx context.Context) ([]session.Entry, error)
	// CurrentModel returns the model driving the conversation, if any.
	CurrentModel() (string, bool)
	SendMessage(ctx context.Context, msg Message, delivery Delivery) error
	Notify(text string, level Level)
	// UI returns the interactive surface, or false in headless runs.
	UI() (UI, bool)
}

// UI hands the screen to caller-supplied components.
type UI interface {
	// Custom runs component until it quits and returns its final state.
	Custom(ctx context.Context, component tea.Model) (tea.Model, error)
	Terminal() Terminal
}

// Terminal is exclusive control of the user's screen.
type Terminal interface {
	Clear()
	// Release gives the terminal to an external program.
	Release() error
	// Restore takes it back.
	Restore() error
}

// WithTerminal releases the terminal for the duration of fn and always
// restores it, even when fn fails or panics.
func WithTerminal(term Terminal, fn func() error) (err error) {
	if term == nil {
		return fn()
	}
	if err := term.Release(); err != nil {
		return fmt.Errorf("host: release terminal: %w", err)
	}
	defer func() {
		if restoreErr := term.Restore(); restoreErr != nil && err == nil {
			err = fmt.Errorf("host: restore terminal: %w", restoreErr)
		}
	}()
	return fn()
}
