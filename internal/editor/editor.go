// Package editor hands text to the user's external editor and reads the
// result back.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/procexec"
)

// NoEditorMessage is the outcome error when neither preference is set.
const NoEditorMessage = "No editor configured. Set $VISUAL or $EDITOR."

// Env holds the editor preferences. Visual wins over Fallback.
type Env struct {
	Visual   string `env:"VISUAL"`
	Fallback string `env:"EDITOR"`
}

// LoadEnv reads the preferences from the process environment. Call it when an
// editor is about to be used; the values are not cached.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("editor: environment: %w", err)
	}
	return e, nil
}

// Command returns the resolved editor command, or "" when none is set.
func (e Env) Command() string {
	if visual := strings.TrimSpace(e.Visual); visual != "" {
		return visual
	}
	return strings.TrimSpace(e.Fallback)
}

// Outcome is what an editor run produced. Err set means Content is nil; an Err
// is reported before any exit code. ExitCode is nil when the editor never ran
// or its code is unknown.
type Outcome struct {
	Content  *string
	Err      string
	ExitCode *int
}

// Runner launches the editor against a file.
type Runner struct {
	Exec     procexec.Runner
	Terminal host.Terminal
}

// Run clears the screen, resolves the editor, hands it the terminal with path
// as its final argument, and reads the file back with one trailing newline
// removed.
func (r *Runner) Run(ctx context.Context, prefs Env, path string) Outcome {
	if r.Terminal != nil {
		r.Terminal.Clear()
	}
	command := prefs.Command()
	if command == "" {
		return Outcome{Err: NoEditorMessage}
	}
	fields := strings.Fields(command)
	args := append(append([]string{}, fields[1:]...), path)

	var (
		res procexec.Result
		ran bool
	)
	err := host.WithTerminal(r.Terminal, func() error {
		var runErr error
		res, runErr = r.Exec.Interactive(ctx, fields[0], args...)
		ran = runErr == nil
		return runErr
	})
	if err != nil {
		var launchErr *procexec.LaunchError
		if errors.As(err, &launchErr) {
			return Outcome{Err: fmt.Sprintf("Failed to launch editor %q: %v", command, launchErr.Err)}
		}
		out := Outcome{Err: fmt.Sprintf("Editor %q failed: %v", command, err)}
		if ran && !res.Killed {
			out.ExitCode = intPtr(res.ExitCode)
		}
		return out
	}
	if res.Killed {
		return Outcome{Err: fmt.Sprintf("Editor %q was terminated by signal %s", command, res.Signal)}
	}
	code := res.ExitCode
	data, err := os.ReadFile(path)
	if err != nil {
		return Outcome{Err: err.Error(), ExitCode: &code}
	}
	content := strings.TrimSuffix(string(data), "\n")
	return Outcome{Content: &content, ExitCode: &code}
}

// Decision is the shared interpretation of an Outcome.
type Decision struct {
	Send    bool
	Content string
	Notice  string
	Level   host.Level
}

// Decide applies the outcome policy: an error beats a non-zero exit code,
// which beats empty content, which beats sending.
func Decide(out Outcome, command string) Decision {
	switch {
	case out.Err != "":
		return Decision{Notice: out.Err, Level: host.LevelError}
	case out.ExitCode != nil && *out.ExitCode != 0:
		return Decision{
			Notice: fmt.Sprintf("Editor %q exited with code %d. Not sending message", command, *out.ExitCode),
			Level:  host.LevelWarning,
		}
	case out.Content == nil || *out.Content == "":
		return Decision{Notice: "Nothing to send", Level: host.LevelInfo}
	}
	return Decision{Send: true, Content: *out.Content}
}

// Session runs one review round trip through a uniquely named temp file.
type Session struct {
	Runner *Runner
	// Prefix distinguishes temp files of different extensions.
	Prefix string
	// Dir defaults to os.TempDir().
	Dir string
}

// Review is the result of a round trip.
type Review struct {
	Decision Decision
	// CleanupErr reports a temp file that could not be removed. It never
	// blocks sending.
	CleanupErr error
}

// Review writes content to a fresh temp file, runs the editor on it, deletes
// the file on every path, and applies Decide. With no editor configured it
// reports the no-editor error without creating a file.
func (s *Session) Review(ctx context.Context, prefs Env, content string) Review {
	command := prefs.Command()
	if command == "" {
		return Review{Decision: Decide(s.Runner.Run(ctx, prefs, ""), command)}
	}
	path, err := s.writeTemp(content)
	if err != nil {
		return Review{Decision: Decision{Notice: err.Error(), Level: host.LevelError}}
	}
	out := s.Runner.Run(ctx, prefs, path)
	review := Review{Decision: Decide(out, command)}
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		review.CleanupErr = fmt.Errorf("editor: remove %s: %w", path, rmErr)
	}
	return review
}

func (s *Session) writeTemp(content string) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = "agentx-"
	}
	path := filepath.Join(dir, prefix+uuid.NewString()+".md")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("editor: create temp file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("editor: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("editor: close temp file: %w", err)
	}
	return path, nil
}

func intPtr(v int) *int { return &v }
