// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIBackend streams chat completions from any OpenAI-compatible
// endpoint (OpenAI, OpenRouter, local gateways).
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a backend. An empty baseURL uses the public API.
func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg), model: model}
}

// Stream gathers the streamed deltas and emits the complete message text
// as a single fragment.
func (o *OpenAIBackend) Stream(ctx context.Context, prompt string, opts Options, emit func(string)) error {
	req := openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: opts.MaxTokens,
		Stream:    true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	var text strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("openai stream recv: %w", err)
		}
		for _, choice := range resp.Choices {
			text.WriteString(choice.Delta.Content)
		}
	}

	if text.Len() > 0 {
		emit(text.String())
	}
	return nil
}
