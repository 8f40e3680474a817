// Package llm resolves model ids to providers and issues single-turn
// completions against them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
)

var (
	// ErrUnknownModel means no registered model matches the requested id.
	ErrUnknownModel = errors.New("llm: unknown model")
	// ErrNoCredential means the model's provider has no API key configured.
	ErrNoCredential = errors.New("llm: no credential")
)

// Provider names an API family.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Model is a registered model.
type Model struct {
	ID       string
	Provider Provider
	Name     string
}

// DefaultModels are registered when NewRegistry receives none.
var DefaultModels = []Model{
	{ID: "claude-haiku-4-5", Provider: ProviderAnthropic, Name: "Claude Haiku 4.5"},
	{ID: "claude-sonnet-4-5", Provider: ProviderAnthropic, Name: "Claude Sonnet 4.5"},
	{ID: "gpt-5-mini", Provider: ProviderOpenAI, Name: "GPT-5 mini"},
	{ID: "gpt-4.1-mini", Provider: ProviderOpenAI, Name: "GPT-4.1 mini"},
}

// Credentials carries provider API keys and optional base URLs.
type Credentials struct {
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
}

// LoadCredentials reads credentials from the process environment.
func LoadCredentials() (Credentials, error) {
	var c Credentials
	if err := env.Parse(&c); err != nil {
		return Credentials{}, fmt.Errorf("llm: credentials: %w", err)
	}
	return c, nil
}

// Request is a single-turn completion request.
type Request struct {
	System    string
	User      string
	MaxTokens int64
}

// Response is the concatenated text of a completion.
type Response struct {
	Text string
}

// Completer issues completions for one model. Cancelling ctx aborts the
// request; the returned error then satisfies errors.Is(err, context.Canceled).
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

type creator func(model string, creds Credentials) (Completer, bool)

// Registry maps model ids to completers.
type Registry struct {
	models   map[string]Model
	creds    Credentials
	creators map[Provider]creator
}

// NewRegistry registers models, falling back to DefaultModels.
func NewRegistry(creds Credentials, models ...Model) *Registry {
	if len(models) == 0 {
		models = DefaultModels
	}
	r := &Registry{
		models: make(map[string]Model, len(models)),
		creds:  creds,
		creators: map[Provider]creator{
			ProviderAnthropic: anthropicCreator,
			ProviderOpenAI:    openAICreator,
		},
	}
	for _, m := range models {
		r.models[strings.ToLower(m.ID)] = m
	}
	return r
}

// Lookup resolves an id. "provider/model" references are accepted when the
// provider prefix matches the registered model.
func (r *Registry) Lookup(id string) (Model, error) {
	ref := strings.ToLower(strings.TrimSpace(id))
	var prefix string
	if idx := strings.Index(ref, "/"); idx > 0 {
		prefix, ref = ref[:idx], ref[idx+1:]
	}
	m, ok := r.models[ref]
	if !ok || (prefix != "" && Provider(prefix) != m.Provider) {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return m, nil
}

// Completer returns a completer for id. There is no fallback: an unknown model
// or a missing credential is an error.
func (r *Registry) Completer(id string) (Completer, error) {
	m, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	create, ok := r.creators[m.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q for %q", ErrUnknownModel, m.Provider, m.ID)
	}
	c, configured := create(m.ID, r.creds)
	if !configured {
		return nil, fmt.Errorf("%w: %s (provider %s)", ErrNoCredential, m.ID, m.Provider)
	}
	return c, nil
}

// Models lists registered models sorted by id.
func (r *Registry) Models() []Model {
	out := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func anthropicCreator(model string, creds Credentials) (Completer, bool) {
	if strings.TrimSpace(creds.AnthropicAPIKey) == "" {
		return nil, false
	}
	return newAnthropicCompleter(model, creds.AnthropicAPIKey, creds.AnthropicBaseURL), true
}

func openAICreator(model string, creds Credentials) (Completer, bool) {
	if strings.TrimSpace(creds.OpenAIAPIKey) == "" {
		return nil, false
	}
	return newOpenAICompleter(model, creds.OpenAIAPIKey, creds.OpenAIBaseURL), true
}

// contextError prefers the context's own error so cancellation is reported
// uniformly across providers.
func contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
