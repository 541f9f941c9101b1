// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Options are the behavior knobs passed with every reasoning call.
type Options struct {
	MaxTurns       int
	MaxTokens      int
	PermissionMode string
}

// Reasoner abstracts the external reasoning service so tests can supply a
// fake. Stream sends prompt and calls emit once per text fragment as the
// response arrives. Implementations must not call emit after returning.
type Reasoner interface {
	Stream(ctx context.Context, prompt string, opts Options, emit func(fragment string)) error
}

// ReasonerFunc adapts a function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, prompt string, opts Options, emit func(string)) error

func (f ReasonerFunc) Stream(ctx context.Context, prompt string, opts Options, emit func(string)) error {
	return f(ctx, prompt, opts, emit)
}

// NewReasoner builds the backend selected by cfg.Backend.
func NewReasoner(cfg types.AnalyzerConfig, log logrus.FieldLogger) (Reasoner, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	switch cfg.Backend {
	case types.BackendClaude, "":
		if cfg.APIKey == "" {
			return nil, errors.New("claude backend requires an API key (ANTHROPIC_API_KEY or .secrets/anthropic-api-key)")
		}
		return &ClaudeBackend{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Client:  &http.Client{Timeout: timeout},
		}, nil
	case types.BackendOpenAI:
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, errors.New("openai backend requires an API key or a base URL")
		}
		return NewOpenAIBackend(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case types.BackendCLI:
		return NewCLIBackend(cfg.Command, cfg.WorkingDir, cfg.Model, log), nil
	default:
		return nil, fmt.Errorf("unknown analyzer backend %q", cfg.Backend)
	}
}

// collect runs one reasoning call and returns every fragment received.
func collect(ctx context.Context, r Reasoner, prompt string, opts Options) ([]string, error) {
	var fragments []string
	err := r.Stream(ctx, prompt, opts, func(s string) {
		fragments = append(fragments, s)
	})
	return fragments, err
}
