package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/agentx/internal/extract"
)

// ExtractTask performs the extraction the loader waits on.
type ExtractTask func(ctx context.Context) (extract.Result, error)

type extractDoneMsg struct {
	result extract.Result
	err    error
}

// Loader shows a spinner while an extraction runs. Escape cancels the task's
// context and quits.
type Loader struct {
	spinner spinner.Model
	label   string
	cancelK key.Binding

	ctx    context.Context
	cancel context.CancelFunc
	task   ExtractTask

	result extract.Result
	err    error
	done   bool
}

// NewLoader prepares a loader for task. The task runs once, in Init.
func NewLoader(parent context.Context, model string, task ExtractTask) *Loader {
	ctx, cancel := context.WithCancel(parent)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return &Loader{
		spinner: s,
		label:   fmt.Sprintf("Extracting questions with %s… (esc to cancel)", model),
		cancelK: key.NewBinding(key.WithKeys("esc", "ctrl+c")),
		ctx:     ctx,
		cancel:  cancel,
		task:    task,
	}
}

// Init implements tea.Model.
func (l *Loader) Init() tea.Cmd {
	return tea.Batch(l.spinner.Tick, l.run())
}

func (l *Loader) run() tea.Cmd {
	ctx, task := l.ctx, l.task
	return func() tea.Msg {
		res, err := task(ctx)
		return extractDoneMsg{result: res, err: err}
	}
}

// Update implements tea.Model.
func (l *Loader) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case extractDoneMsg:
		if l.done {
			return l, nil
		}
		l.result, l.err, l.done = msg.result, msg.err, true
		l.cancel()
		return l, tea.Quit
	case tea.KeyMsg:
		if key.Matches(msg, l.cancelK) {
			l.cancel()
			l.err, l.done = extract.ErrCancelled, true
			return l, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		l.spinner, cmd = l.spinner.Update(msg)
		return l, cmd
	}
	return l, nil
}

// View implements tea.Model.
func (l *Loader) View() string {
	return frameStyle.Render(l.spinner.View() + " " + l.label)
}

// Outcome reports the task result. A loader that quit before the task
// finished reports extract.ErrCancelled.
func (l *Loader) Outcome() (extract.Result, error) {
	if !l.done {
		l.cancel()
		return extract.Result{}, extract.ErrCancelled
	}
	return l.result, l.err
}
