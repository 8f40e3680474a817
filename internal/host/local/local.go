// Package local is the host adapter behind the agentx CLI. It reads the
// conversation from a JSONL branch file, writes outgoing messages as JSON
// lines and renders interactive components on the controlling terminal.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/session"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Console is the terminal interactive components render to.
type Console struct {
	In  io.Reader
	Out io.Writer
}

// DetectConsole opens the controlling terminal. It falls back to stdin and
// stderr when both are terminals, and returns nil in headless runs. The close
// func is never nil.
func DetectConsole() (*Console, func() error) {
	if f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		if isatty.IsTerminal(f.Fd()) {
			return &Console{In: f, Out: f}, f.Close
		}
		f.Close()
	}
	if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd()) {
		return &Console{In: os.Stdin, Out: os.Stderr}, func() error { return nil }
	}
	return nil, func() error { return nil }
}

// Options configures a Host.
type Options struct {
	// BranchPath is a JSONL file of session entries. Empty or missing means an
	// empty conversation.
	BranchPath string
	Model      string
	// Messages receives sent messages; defaults to stdout.
	Messages io.Writer
	// Notices receives notifications; defaults to stderr.
	Notices io.Writer
	// Console enables UI(); nil means headless.
	Console *Console
}

// Record is the JSON line written for each sent message.
type Record struct {
	Message  host.Message  `json:"message"`
	Delivery host.Delivery `json:"delivery"`
}

// Host implements host.Host for the CLI.
type Host struct {
	opts Options

	mu      sync.Mutex
	program *tea.Program
}

// New builds a Host.
func New(opts Options) *Host {
	if opts.Messages == nil {
		opts.Messages = os.Stdout
	}
	if opts.Notices == nil {
		opts.Notices = os.Stderr
	}
	return &Host{opts: opts}
}

func (h *Host) Branch(ctx context.Context) ([]session.Entry, error) {
	if h.opts.BranchPath == "" {
		return nil, nil
	}
	f, err := os.Open(h.opts.BranchPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("local: open branch: %w", err)
	}
	defer f.Close()
	entries, err := session.ReadBranch(f)
	if err != nil {
		return nil, fmt.Errorf("local: read branch %s: %w", h.opts.BranchPath, err)
	}
	return entries, nil
}

func (h *Host) CurrentModel() (string, bool) {
	return h.opts.Model, h.opts.Model != ""
}

func (h *Host) SendMessage(ctx context.Context, msg host.Message, d host.Delivery) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := json.NewEncoder(h.opts.Messages).Encode(Record{Message: msg, Delivery: d}); err != nil {
		return fmt.Errorf("local: write message: %w", err)
	}
	return nil
}

func (h *Host) Notify(text string, level host.Level) {
	style := infoStyle
	switch level {
	case host.LevelWarning:
		style = warningStyle
	case host.LevelError:
		style = errorStyle
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.opts.Notices, style.Render(fmt.Sprintf("[%s] %s", level, text)))
}

func (h *Host) UI() (host.UI, bool) {
	if h.opts.Console == nil {
		return nil, false
	}
	return &ui{h: h, console: h.opts.Console}, true
}

type ui struct {
	h       *Host
	console *Console
}

// Custom runs component as a program on the console until it quits.
func (u *ui) Custom(ctx context.Context, component tea.Model) (tea.Model, error) {
	p := tea.NewProgram(component,
		tea.WithContext(ctx),
		tea.WithInput(u.console.In),
		tea.WithOutput(u.console.Out),
	)
	u.h.setProgram(p)
	defer u.h.setProgram(nil)
	final, err := p.Run()
	if err != nil {
		return final, fmt.Errorf("local: run component: %w", err)
	}
	return final, nil
}

func (u *ui) Terminal() host.Terminal { return &terminal{ui: u} }

func (h *Host) setProgram(p *tea.Program) {
	h.mu.Lock()
	h.program = p
	h.mu.Unlock()
}

func (h *Host) activeProgram() *tea.Program {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.program
}

// terminal hands the screen over to external programs. While a component is
// running it suspends the program's renderer; otherwise the screen is free.
type terminal struct{ ui *ui }

func (t *terminal) Clear() {
	fmt.Fprint(t.ui.console.Out, "\x1b[H\x1b[2J")
}

func (t *terminal) Release() error {
	if p := t.ui.h.activeProgram(); p != nil {
		return p.ReleaseTerminal()
	}
	return nil
}

func (t *terminal) Restore() error {
	if p := t.ui.h.activeProgram(); p != nil {
		return p.RestoreTerminal()
	}
	return nil
}
