// Package respond turns the last assistant message into a reply: questions are
// extracted, answered in a form, optionally reviewed in an editor, and sent
// back as a single message.
package respond

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/agentx/internal/editor"
	"github.com/kingrea/agentx/internal/extract"
	"github.com/kingrea/agentx/internal/host"
	"github.com/kingrea/agentx/internal/procexec"
	"github.com/kingrea/agentx/internal/session"
	"github.com/kingrea/agentx/internal/tui"
)

// Mode selects which steps run.
type Mode string

const (
	ModeFull       Mode = "full"
	ModeFormOnly   Mode = "form-only"
	ModeEditorOnly Mode = "editor-only"
)

const (
	// LeadIn prefixes every sent reply.
	LeadIn = "Here is my response to your last message:"
	// CustomTypeAnswers tags replies built from the form.
	CustomTypeAnswers = "respond-answers"
	// CustomTypeEdit tags replies built from the editor alone.
	CustomTypeEdit = "respond-edit"
	// TempPrefix names the review file.
	TempPrefix = "agentx-respond-"
)

// User-visible notices.
const (
	NoticeNoUI             = "respond needs an interactive terminal"
	NoticeNoModel          = "No model selected"
	NoticeNoAssistant      = "No assistant message to respond to"
	NoticeCancelled        = "Cancelled"
	NoticeMalformed        = "Could not read questions from the extraction model"
	NoticeEditorSkipped    = "No editor configured. Sending without review."
	noticeExtractionFailed = "Question extraction failed: %v"
)

// ParseMode reads the mode from the trailing token of a command's argument
// text.
func ParseMode(args string) Mode {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ModeFull
	}
	switch fields[len(fields)-1] {
	case "--tui", "-t":
		return ModeFormOnly
	case "--editor", "-e":
		return ModeEditorOnly
	}
	return ModeFull
}

func (m Mode) usesExtraction() bool { return m != ModeEditorOnly }
func (m Mode) usesEditor() bool     { return m != ModeFormOnly }

func (m Mode) customType() string {
	if m == ModeEditorOnly {
		return CustomTypeEdit
	}
	return CustomTypeAnswers
}

// Pipeline runs one reply. Zero values are filled in by Run.
type Pipeline struct {
	Models          extract.Resolver
	ExtractionModel string
	MaxTokens       int64
	DeliverAs       host.DeliverMode
	Exec            procexec.Runner
	// TempDir holds review files; empty means os.TempDir().
	TempDir string
	Logger  *zap.Logger

	// Seams, replaced in tests.
	editorEnv func() (editor.Env, error)
	extractFn func(ctx context.Context, ui host.UI, ex *extract.Extractor, text string) (extract.Result, error)
	askFn     func(ctx context.Context, ui host.UI, questions []extract.Question) (string, bool, error)
	reviewFn  func(ctx context.Context, term host.Terminal, prefs editor.Env, content string) editor.Review
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Run executes mode against h. Every stop is reported to the user through a
// single notification; the returned error covers only a failed send.
func (p *Pipeline) Run(ctx context.Context, h host.Host, mode Mode) error {
	log := p.logger().With(zap.String("mode", string(mode)))

	ui, ok := h.UI()
	if !ok {
		h.Notify(NoticeNoUI, host.LevelError)
		return nil
	}
	model, ok := h.CurrentModel()
	if !ok {
		h.Notify(NoticeNoModel, host.LevelError)
		return nil
	}
	entries, err := h.Branch(ctx)
	if err != nil {
		log.Warn("read branch", zap.Error(err))
		h.Notify(fmt.Sprintf("Could not read the conversation: %v", err), host.LevelError)
		return nil
	}
	content, ok := session.LastAssistantText(entries)
	if !ok {
		h.Notify(NoticeNoAssistant, host.LevelError)
		return nil
	}
	log.Debug("respond started", zap.String("session_model", model), zap.Int("entries", len(entries)))

	if mode.usesExtraction() {
		compiled, proceed := p.answer(ctx, h, ui, content, log)
		if !proceed {
			return nil
		}
		content = compiled
	}

	if mode.usesEditor() {
		edited, proceed := p.review(ctx, h, ui, mode, content, log)
		if !proceed {
			return nil
		}
		content = edited
	}

	msg := host.Message{
		CustomType: mode.customType(),
		Content:    LeadIn + "\n\n" + content,
		Display:    true,
	}
	delivery := host.Delivery{TriggerTurn: true, DeliverAs: p.deliverAs()}
	if err := h.SendMessage(ctx, msg, delivery); err != nil {
		return fmt.Errorf("respond: send message: %w", err)
	}
	log.Info("reply sent", zap.String("custom_type", msg.CustomType), zap.Int("bytes", len(msg.Content)))
	return nil
}

// answer extracts questions and collects answers. With zero questions the raw
// text is returned unchanged.
func (p *Pipeline) answer(ctx context.Context, h host.Host, ui host.UI, text string, log *zap.Logger) (string, bool) {
	if p.Models == nil {
		h.Notify("No extraction models configured", host.LevelError)
		return "", false
	}
	ex, err := extract.New(p.Models, p.ExtractionModel, p.MaxTokens)
	if err != nil {
		log.Warn("resolve extraction model", zap.String("model", p.ExtractionModel), zap.Error(err))
		h.Notify(fmt.Sprintf("Extraction model %s unavailable: %v", p.ExtractionModel, err), host.LevelError)
		return "", false
	}
	extractFn := p.extractFn
	if extractFn == nil {
		extractFn = extractWithLoader
	}
	res, err := extractFn(ctx, ui, ex, text)
	switch {
	case errors.Is(err, extract.ErrCancelled):
		h.Notify(NoticeCancelled, host.LevelInfo)
		return "", false
	case errors.Is(err, extract.ErrMalformedReply):
		log.Warn("extraction reply unreadable", zap.Error(err))
		h.Notify(NoticeMalformed, host.LevelWarning)
		return "", false
	case err != nil:
		log.Warn("extraction failed", zap.Error(err))
		h.Notify(fmt.Sprintf(noticeExtractionFailed, err), host.LevelError)
		return "", false
	}
	if len(res.Questions) == 0 {
		log.Debug("no questions extracted")
		return text, true
	}

	askFn := p.askFn
	if askFn == nil {
		askFn = askWithForm
	}
	compiled, ok, err := askFn(ctx, ui, res.Questions)
	if err != nil {
		log.Warn("question form failed", zap.Error(err))
		h.Notify(fmt.Sprintf("Question form failed: %v", err), host.LevelError)
		return "", false
	}
	if !ok {
		h.Notify(NoticeCancelled, host.LevelInfo)
		return "", false
	}
	return compiled, true
}

// review runs the editor step. In full mode a missing editor is skipped with
// a note; in editor-only mode it is an error.
func (p *Pipeline) review(ctx context.Context, h host.Host, ui host.UI, mode Mode, content string, log *zap.Logger) (string, bool) {
	loadEnv := p.editorEnv
	if loadEnv == nil {
		loadEnv = editor.LoadEnv
	}
	prefs, err := loadEnv()
	if err != nil {
		h.Notify(err.Error(), host.LevelError)
		return "", false
	}
	if prefs.Command() == "" && mode == ModeFull {
		h.Notify(NoticeEditorSkipped, host.LevelInfo)
		return content, true
	}

	reviewFn := p.reviewFn
	if reviewFn == nil {
		reviewFn = p.reviewInEditor
	}
	result := reviewFn(ctx, ui.Terminal(), prefs, content)
	if result.CleanupErr != nil {
		log.Warn("remove review file", zap.Error(result.CleanupErr))
		h.Notify(fmt.Sprintf("Could not remove temp file: %v", result.CleanupErr), host.LevelWarning)
	}
	if !result.Decision.Send {
		h.Notify(result.Decision.Notice, result.Decision.Level)
		return "", false
	}
	return result.Decision.Content, true
}

func (p *Pipeline) reviewInEditor(ctx context.Context, term host.Terminal, prefs editor.Env, content string) editor.Review {
	exec := p.Exec
	if exec == nil {
		exec = &procexec.ExecRunner{}
	}
	s := &editor.Session{
		Runner: &editor.Runner{Exec: exec, Terminal: term},
		Prefix: TempPrefix,
		Dir:    p.TempDir,
	}
	return s.Review(ctx, prefs, content)
}

func (p *Pipeline) deliverAs() host.DeliverMode {
	if p.DeliverAs == "" {
		return host.DeliverFollowUp
	}
	return p.DeliverAs
}

func extractWithLoader(ctx context.Context, ui host.UI, ex *extract.Extractor, text string) (extract.Result, error) {
	loader := tui.NewLoader(ctx, ex.Model, func(ctx context.Context) (extract.Result, error) {
		return ex.Extract(ctx, text)
	})
	if _, err := ui.Custom(ctx, loader); err != nil {
		if ctx.Err() != nil {
			return extract.Result{}, extract.ErrCancelled
		}
		return extract.Result{}, fmt.Errorf("respond: loader: %w", err)
	}
	return loader.Outcome()
}

func askWithForm(ctx context.Context, ui host.UI, questions []extract.Question) (string, bool, error) {
	form := tui.NewQAForm(questions)
	if _, err := ui.Custom(ctx, form); err != nil {
		if ctx.Err() != nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("respond: form: %w", err)
	}
	compiled, ok := form.Result()
	return compiled, ok, nil
}
