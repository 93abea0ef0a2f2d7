// Package llm provides the model client abstraction: one request/response
// exchange with a language model, provider selection, failure classification,
// and the bounded retry policy applied at the client boundary.
package llm

import (
	"context"
	"strings"

	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/llm/anthropic"
	"github.com/bookforge/bookforge/pkg/llm/openai"
	llmtypes "github.com/bookforge/bookforge/pkg/types/llm"
	tooltypes "github.com/bookforge/bookforge/pkg/types/tools"
)

// Client performs a single exchange with a language model. Implementations
// must not mutate the conversation they are given; appending responses is the
// agent loop's job alone.
type Client interface {
	Complete(ctx context.Context, conversation *llmtypes.Conversation, specs []tooltypes.ToolSpec) (llmtypes.ModelResponse, error)
}

// NewClient creates a provider client based on the configuration, wrapped
// with the configured retry policy. The provider is chosen explicitly via
// config, falling back to model-name prefix detection.
func NewClient(cfg *config.Config) Client {
	var inner Client

	switch {
	case cfg.Provider == "openai", strings.HasPrefix(strings.ToLower(cfg.Model), "gpt"):
		inner = openai.NewClient(cfg.Model, cfg.MaxTokens, cfg.BaseURL)
	default:
		inner = anthropic.NewClient(cfg.Model, cfg.MaxTokens)
	}

	return WithRetry(inner, cfg.Retry)
}
