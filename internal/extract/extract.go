// Package extract asks an extraction model which questions an assistant
// message is waiting on.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kingrea/agentx/internal/llm"
)

// SystemPrompt is sent with every extraction request.
const SystemPrompt = `You extract questions from an assistant's message so the user can answer them one by one.

Reply with a single JSON object and nothing else, in this shape:
{"questions": [{"question": "...", "context": "..."}]}

Rules:
- Include every question or request that needs input from the user, in the order they appear.
- Phrase each question concisely, as a direct question.
- Add "context" only when the question cannot be understood without it; otherwise omit the field.
- If the message asks nothing of the user, reply with {"questions": []}.`

var (
	// ErrCancelled means the request was aborted before a reply arrived.
	ErrCancelled = errors.New("extract: cancelled")
	// ErrMalformedReply means the model replied with something other than a
	// questions object.
	ErrMalformedReply = errors.New("extract: malformed reply")
)

// Question is one extracted question.
type Question struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

// Result holds the extracted questions in message order. An empty result is a
// valid outcome.
type Result struct {
	Questions []Question
}

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

// ExtractJSONPayload returns the contents of the first fenced code block in
// text, with or without a language tag, or text itself when there is none.
func ExtractJSONPayload(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// Parse decodes a model reply. The questions field must be an array; entries
// with a blank question are dropped.
func Parse(reply string) (Result, error) {
	payload := ExtractJSONPayload(reply)
	var envelope struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	raw := bytes.TrimSpace(envelope.Questions)
	if len(raw) == 0 || raw[0] != '[' {
		return Result{}, fmt.Errorf("%w: questions is not a list", ErrMalformedReply)
	}
	var items []Question
	if err := json.Unmarshal(raw, &items); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	out := Result{Questions: make([]Question, 0, len(items))}
	for _, q := range items {
		q.Question = strings.TrimSpace(q.Question)
		q.Context = strings.TrimSpace(q.Context)
		if q.Question == "" {
			continue
		}
		out.Questions = append(out.Questions, q)
	}
	return out, nil
}

// Resolver hands out completers by model id.
type Resolver interface {
	Completer(id string) (llm.Completer, error)
}

// Extractor issues extraction requests against one model.
type Extractor struct {
	Completer llm.Completer
	Model     string
	MaxTokens int64
}

// New resolves model through r. Unknown models and missing credentials are
// returned as errors; there is no fallback model.
func New(r Resolver, model string, maxTokens int64) (*Extractor, error) {
	c, err := r.Completer(model)
	if err != nil {
		return nil, err
	}
	return &Extractor{Completer: c, Model: model, MaxTokens: maxTokens}, nil
}

// Extract sends text to the model and parses its reply. A cancelled ctx
// yields ErrCancelled; an unreadable reply yields ErrMalformedReply.
func (e *Extractor) Extract(ctx context.Context, text string) (Result, error) {
	resp, err := e.Completer.Complete(ctx, llm.Request{
		System:    SystemPrompt,
		User:      text,
		MaxTokens: e.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return Result{}, ErrCancelled
		}
		return Result{}, fmt.Errorf("extract: %s: %w", e.Model, err)
	}
	return Parse(resp.Text)
}
