package sysprompt

import (
	"context"

	"github.com/bookforge/bookforge/pkg/config"
	"github.com/bookforge/bookforge/pkg/logger"
)

// SystemPrompt generates the session system prompt from configuration
func SystemPrompt(cfg *config.Config) string {
	renderer := NewRenderer(TemplateFS)

	prompt, err := renderer.RenderSystemPrompt(NewPromptContext(cfg))
	if err != nil {
		log := logger.G(context.Background())
		log.WithError(err).Fatal("Error rendering system prompt")
	}

	return prompt
}
