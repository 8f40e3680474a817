package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/agentx/internal/extract"
)

func TestLoaderDeliversResult(t *testing.T) {
	want := extract.Result{Questions: []extract.Question{{Question: "Color?"}}}
	l := NewLoader(context.Background(), "claude-haiku-4-5", func(ctx context.Context) (extract.Result, error) {
		return want, nil
	})
	if !strings.Contains(l.View(), "claude-haiku-4-5") {
		t.Fatalf("view should name the model: %q", l.View())
	}
	_, cmd := l.Update(l.run()())
	if !isQuit(cmd) {
		t.Fatalf("expected quit after completion")
	}
	got, err := l.Outcome()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Questions) != 1 || got.Questions[0].Question != "Color?" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLoaderEscapeCancelsTask(t *testing.T) {
	l := NewLoader(context.Background(), "m", func(ctx context.Context) (extract.Result, error) {
		<-ctx.Done()
		return extract.Result{}, ctx.Err()
	})
	taskCmd := l.run()
	_, cmd := l.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !isQuit(cmd) {
		t.Fatalf("expected quit on escape")
	}
	msg := taskCmd().(extractDoneMsg)
	if !errors.Is(msg.err, context.Canceled) {
		t.Fatalf("task context should be cancelled, got %v", msg.err)
	}
	l.Update(msg)
	if _, err := l.Outcome(); !errors.Is(err, extract.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestLoaderOutcomeBeforeCompletion(t *testing.T) {
	l := NewLoader(context.Background(), "m", func(ctx context.Context) (extract.Result, error) {
		return extract.Result{}, nil
	})
	if _, err := l.Outcome(); !errors.Is(err, extract.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestLoaderPassesTaskErrors(t *testing.T) {
	boom := errors.New("boom")
	l := NewLoader(context.Background(), "m", func(ctx context.Context) (extract.Result, error) {
		return extract.Result{}, boom
	})
	l.Update(l.run()())
	if _, err := l.Outcome(); !errors.Is(err, boom) {
		t.Fatalf("expected task error, got %v", err)
	}
}
