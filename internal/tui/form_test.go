package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/agentx/internal/extract"
)

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyTab   = tea.KeyMsg{Type: tea.KeyTab}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
)

func typeText(text string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)}
}

func send(t *testing.T, f *QAForm, msgs ...tea.Msg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		model, next := f.Update(msg)
		if model != f {
			t.Fatalf("unexpected model %T", model)
		}
		cmd = next
	}
	return cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func colorAndTime() []extract.Question {
	return []extract.Question{
		{Question: "What is your favorite color?"},
		{Question: "What time works for you?"},
	}
}

func TestFormSkippedAnswerBlocksSubmission(t *testing.T) {
	f := NewQAForm(colorAndTime())
	send(t, f, keyEnter, typeText("blue"), keyEnter)
	if f.state != stateBrowsing || f.index != 1 {
		t.Fatalf("expected browsing question 2, got state %d index %d", f.state, f.index)
	}
	send(t, f, keyTab)
	if f.state != stateConfirming {
		t.Fatalf("expected confirming after skip, got %d", f.state)
	}
	view := f.View()
	if got := strings.Count(view, NoAnswer); got != 1 {
		t.Fatalf("expected one %q on confirm screen, got %d\n%s", NoAnswer, got, view)
	}
	if !strings.Contains(view, "blue") {
		t.Fatalf("confirm screen should show first answer:\n%s", view)
	}
	if cmd := send(t, f, keyEnter); isQuit(cmd) {
		t.Fatalf("submission must be blocked while an answer is missing")
	}
	if _, ok := f.Result(); ok {
		t.Fatalf("blocked form must not produce a result")
	}

	send(t, f, keyLeft, keyEnter, typeText("3pm"), keyEnter)
	if f.state != stateConfirming {
		t.Fatalf("expected confirming after answering last question, got %d", f.state)
	}
	if cmd := send(t, f, keyEnter); !isQuit(cmd) {
		t.Fatalf("expected submission to quit the form")
	}
	got, ok := f.Result()
	if !ok {
		t.Fatalf("expected compiled result")
	}
	want := "Q: What is your favorite color?\nA: blue\n\nQ: What time works for you?\nA: 3pm"
	if got != want {
		t.Fatalf("compiled transcript mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormWhitespaceAnswerDoesNotCount(t *testing.T) {
	f := NewQAForm(colorAndTime()[:1])
	send(t, f, keyEnter, typeText("   "), keyEnter)
	if f.AllAnswered() {
		t.Fatalf("whitespace answer must not count as answered")
	}
	if f.Answers()[0] != "   " {
		t.Fatalf("raw submitted value should be stored, got %q", f.Answers()[0])
	}
}

func TestFormEscapeInEditingKeepsStoredAnswer(t *testing.T) {
	f := NewQAForm(colorAndTime())
	send(t, f, keyEnter, typeText("red"), keyEnter, keyLeft)
	send(t, f, keyEnter, typeText(" and green"), keyEsc)
	if f.state != stateBrowsing {
		t.Fatalf("escape while editing should return to browsing, got %d", f.state)
	}
	if f.cancelled {
		t.Fatalf("escape while editing must not cancel the form")
	}
	if got := f.Answers()[0]; got != "red" {
		t.Fatalf("stored answer changed to %q", got)
	}
}

func TestFormEditorSeededWithExistingAnswer(t *testing.T) {
	f := NewQAForm(colorAndTime())
	send(t, f, keyEnter, typeText("teal"), keyEnter, keyLeft, keyEnter)
	if f.state != stateEditing {
		t.Fatalf("expected editing, got %d", f.state)
	}
	if got := f.editor.Value(); got != "teal" {
		t.Fatalf("editor should be seeded with %q, got %q", "teal", got)
	}
}

func TestFormEscapeCancels(t *testing.T) {
	for _, tc := range []struct {
		name string
		msgs []tea.Msg
	}{
		{name: "browsing", msgs: []tea.Msg{keyEsc}},
		{name: "confirming", msgs: []tea.Msg{keyTab, keyTab, keyEsc}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := NewQAForm(colorAndTime())
			cmd := send(t, f, tc.msgs...)
			if !isQuit(cmd) {
				t.Fatalf("expected quit on cancel")
			}
			if _, ok := f.Result(); ok {
				t.Fatalf("cancelled form must not produce a result")
			}
		})
	}
}

func TestFormBackNavigationStopsAtFirstQuestion(t *testing.T) {
	f := NewQAForm(colorAndTime())
	send(t, f, keyLeft, keyLeft)
	if f.index != 0 {
		t.Fatalf("expected index 0, got %d", f.index)
	}
	send(t, f, tea.KeyMsg{Type: tea.KeyRight})
	if f.index != 1 {
		t.Fatalf("right arrow should skip forward, got index %d", f.index)
	}
}

func TestCompile(t *testing.T) {
	questions := []extract.Question{
		{Question: "Which database?", Context: "for the cache layer"},
		{Question: "Deadline?"},
	}
	got := Compile(questions, []string{"  redis \n", ""})
	want := "Q: Which database?\n> for the cache layer\nA: redis\n\nQ: Deadline?\nA: (no answer)"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCompileAllEmptyAnswers(t *testing.T) {
	for n := 1; n <= 5; n++ {
		questions := make([]extract.Question, n)
		for i := range questions {
			questions[i] = extract.Question{Question: "q"}
		}
		got := Compile(questions, make([]string, n))
		if count := strings.Count(got, NoAnswer); count != n {
			t.Fatalf("n=%d: expected %d placeholders, got %d", n, n, count)
		}
	}
}
