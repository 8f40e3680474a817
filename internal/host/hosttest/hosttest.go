// Package hosttest provides an in-memory host.Host for extension tests.
package hosttest

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/session"
)

// Notice is one recorded notification.
type Notice struct {
	Text  string
	Level host.Level
}

// Sent is one recorded outgoing message.
type Sent struct {
	Message  host.Message
	Delivery host.Delivery
}

// Host records everything extensions do with it.
type Host struct {
	Entries []session.Entry
	Model   string
	// Interactive controls whether UI reports a terminal.
	Interactive bool
	BranchErr   error
	SendErr     error

	mu      sync.Mutex
	notices []Notice
	sent    []Sent
	calls   []string
}

// New returns an interactive host over entries.
func New(entries ...session.Entry) *Host {
	return &Host{Entries: entries, Model: "claude-sonnet-4-5", Interactive: true}
}

// Assistant builds an assistant message entry with one text segment.
func Assistant(text string) session.Entry {
	return session.Entry{
		Kind:     session.KindMessage,
		Role:     session.RoleAssistant,
		Segments: []session.Segment{session.TextSegment{Text: text}},
	}
}

func (h *Host) Branch(ctx context.Context) ([]session.Entry, error) {
	if h.BranchErr != nil {
		return nil, h.BranchErr
	}
	return h.Entries, nil
}

func (h *Host) CurrentModel() (string, bool) { return h.Model, h.Model != "" }

func (h *Host) SendMessage(ctx context.Context, msg host.Message, d host.Delivery) error {
	if h.SendErr != nil {
		return h.SendErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, Sent{Message: msg, Delivery: d})
	return nil
}

func (h *Host) Notify(text string, level host.Level) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, Notice{Text: text, Level: level})
}

func (h *Host) UI() (host.UI, bool) {
	if !h.Interactive {
		return nil, false
	}
	return ui{h}, true
}

// Notices returns recorded notifications in order.
func (h *Host) Notices() []Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notice(nil), h.notices...)
}

// Sent returns recorded messages in order.
func (h *Host) Sent() []Sent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Sent(nil), h.sent...)
}

// TerminalCalls lists Clear/Release/Restore calls made through the UI.
func (h *Host) TerminalCalls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

type ui struct{ h *Host }

// Custom returns the component untouched.
func (u ui) Custom(ctx context.Context, component tea.Model) (tea.Model, error) {
	return component, nil
}

func (u ui) Terminal() host.Terminal { return &terminalRef{h: u.h} }

type terminalRef struct{ h *Host }

func (t *terminalRef) record(call string) {
	t.h.mu.Lock()
	t.h.calls = append(t.h.calls, call)
	t.h.mu.Unlock()
}

func (t *terminalRef) Clear()         { t.record("clear") }
func (t *terminalRef) Release() error { t.record("release"); return nil }
func (t *terminalRef) Restore() error { t.record("restore"); return nil }
