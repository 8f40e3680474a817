// internal/tui/form.go
//
// QAForm walks the user through extracted questions one at a time.
// The form has three views:
//
//  1. Browsing: look at question i, skip it or start answering it
//  2. Editing: a textarea seeded with the stored answer
//  3. Confirming: every question with its answer, submit when all are answered
//
// Escape outside Editing cancels the whole form.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/agentx/internal/extract"
)

// NoAnswer stands in for an empty answer on the confirm screen and in the
// compiled transcript.
const NoAnswer = "(no answer)"

type formState int

const (
	stateBrowsing formState = iota
	stateEditing
	stateConfirming
)

type formKeys struct {
	Answer  key.Binding
	Next    key.Binding
	Prev    key.Binding
	Save    key.Binding
	Newline key.Binding
	Back    key.Binding
	Submit  key.Binding
	Cancel  key.Binding
}

func newFormKeys() formKeys {
	return formKeys{
		Answer:  key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "answer")),
		Next:    key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab/→", "skip")),
		Prev:    key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab/←", "back")),
		Save:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Newline: key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "discard edit")),
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Cancel:  key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
	}
}

// QAForm is the bubbletea model for answering extracted questions.
type QAForm struct {
	questions []extract.Question
	answers   []string
	index     int
	state     formState

	editor textarea.Model
	keys   formKeys
	help   help.Model
	width  int

	blocked   bool
	submitted bool
	cancelled bool
}

// NewQAForm builds a form over questions. Answers start empty.
func NewQAForm(questions []extract.Question) *QAForm {
	ta := textarea.New()
	ta.Placeholder = "Type your answer (Enter to save, Alt+Enter for newline)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(4)
	keys := newFormKeys()
	ta.KeyMap.InsertNewline = keys.Newline

	f := &QAForm{
		questions: questions,
		answers:   make([]string, len(questions)),
		editor:    ta,
		keys:      keys,
		help:      help.New(),
	}
	if len(questions) == 0 {
		f.state = stateConfirming
	}
	return f
}

// Init implements tea.Model.
func (f *QAForm) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (f *QAForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		f.width = msg.Width
		f.editor.SetWidth(max(20, msg.Width-4))
		f.help.Width = msg.Width
		return f, nil
	case tea.KeyMsg:
		switch f.state {
		case stateEditing:
			return f.updateEditing(msg)
		case stateConfirming:
			return f.updateConfirming(msg)
		default:
			return f.updateBrowsing(msg)
		}
	}
	if f.state == stateEditing {
		var cmd tea.Cmd
		f.editor, cmd = f.editor.Update(msg)
		return f, cmd
	}
	return f, nil
}

func (f *QAForm) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, f.keys.Cancel):
		return f.cancel()
	case key.Matches(msg, f.keys.Answer):
		f.editor.SetValue(f.answers[f.index])
		f.state = stateEditing
		return f, f.editor.Focus()
	case key.Matches(msg, f.keys.Next):
		f.advance()
	case key.Matches(msg, f.keys.Prev):
		if f.index > 0 {
			f.index--
		}
	}
	return f, nil
}

func (f *QAForm) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, f.keys.Back):
		f.editor.Blur()
		f.state = stateBrowsing
		return f, nil
	case key.Matches(msg, f.keys.Save):
		f.answers[f.index] = f.editor.Value()
		f.editor.Blur()
		f.state = stateBrowsing
		f.advance()
		return f, nil
	}
	var cmd tea.Cmd
	f.editor, cmd = f.editor.Update(msg)
	return f, cmd
}

func (f *QAForm) updateConfirming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, f.keys.Cancel):
		return f.cancel()
	case key.Matches(msg, f.keys.Submit):
		if !f.AllAnswered() {
			f.blocked = true
			return f, nil
		}
		f.submitted = true
		return f, tea.Quit
	case key.Matches(msg, f.keys.Prev):
		if len(f.questions) > 0 {
			f.index = len(f.questions) - 1
			f.state = stateBrowsing
			f.blocked = false
		}
	}
	return f, nil
}

func (f *QAForm) advance() {
	f.index++
	if f.index >= len(f.questions) {
		f.index = len(f.questions)
		f.state = stateConfirming
	}
}

func (f *QAForm) cancel() (tea.Model, tea.Cmd) {
	f.cancelled = true
	return f, tea.Quit
}

// AllAnswered reports whether every answer has non-whitespace text.
func (f *QAForm) AllAnswered() bool {
	for _, a := range f.answers {
		if strings.TrimSpace(a) == "" {
			return false
		}
	}
	return true
}

// Result returns the compiled transcript, or false when the form was cancelled
// or never submitted.
func (f *QAForm) Result() (string, bool) {
	if f.cancelled || !f.submitted {
		return "", false
	}
	return Compile(f.questions, f.answers), true
}

// Answers returns a copy of the stored answers.
func (f *QAForm) Answers() []string {
	return append([]string(nil), f.answers...)
}

// View implements tea.Model.
func (f *QAForm) View() string {
	var b strings.Builder
	switch f.state {
	case stateConfirming:
		b.WriteString(titleStyle.Render("Review your answers"))
		b.WriteString("\n\n")
		for i, q := range f.questions {
			fmt.Fprintf(&b, "%s\n%s\n\n", questionStyle.Render(fmt.Sprintf("%d. %s", i+1, q.Question)), renderAnswer(f.answers[i]))
		}
		if f.blocked {
			b.WriteString(warnStyle.Render("Answer every question before sending."))
			b.WriteString("\n")
		}
		b.WriteString(f.help.ShortHelpView([]key.Binding{f.keys.Submit, f.keys.Prev, f.keys.Cancel}))
	default:
		q := f.questions[f.index]
		b.WriteString(titleStyle.Render(fmt.Sprintf("Question %d of %d", f.index+1, len(f.questions))))
		b.WriteString("\n\n")
		b.WriteString(questionStyle.Render(q.Question))
		b.WriteString("\n")
		if q.Context != "" {
			b.WriteString(contextStyle.Render(q.Context))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if f.state == stateEditing {
			b.WriteString(f.editor.View())
			b.WriteString("\n")
			b.WriteString(f.help.ShortHelpView([]key.Binding{f.keys.Save, f.keys.Newline, f.keys.Back}))
		} else {
			b.WriteString(renderAnswer(f.answers[f.index]))
			b.WriteString("\n\n")
			b.WriteString(f.help.ShortHelpView([]key.Binding{f.keys.Answer, f.keys.Next, f.keys.Prev, f.keys.Cancel}))
		}
	}
	return frameStyle.Render(b.String())
}

func renderAnswer(answer string) string {
	if strings.TrimSpace(answer) == "" {
		return missingStyle.Render(NoAnswer)
	}
	return answerStyle.Render(answer)
}

// Compile renders questions and answers as a Q/A transcript.
func Compile(questions []extract.Question, answers []string) string {
	lines := make([]string, 0, len(questions)*4)
	for i, q := range questions {
		lines = append(lines, "Q: "+q.Question)
		if q.Context != "" {
			lines = append(lines, "> "+q.Context)
		}
		answer := ""
		if i < len(answers) {
			answer = strings.TrimSpace(answers[i])
		}
		if answer == "" {
			answer = NoAnswer
		}
		lines = append(lines, "A: "+answer, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
