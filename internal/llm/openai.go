package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type openAICompleter struct {
	client openai.Client
	model  string
}

func newOpenAICompleter(model, apiKey, baseURL string) *openAICompleter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	return &openAICompleter{client: openai.NewClient(opts...), model: model}
}

func (c *openAICompleter) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Opt(req.MaxTokens)
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			err = fmt.Errorf("status %d: %s", apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		}
		return Response{}, contextError(ctx, fmt.Errorf("llm: openai %s: %w", c.model, err))
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("llm: openai %s: no choices returned", c.model)
	}
	return Response{Text: resp.Choices[0].Message.Content}, nil
}
