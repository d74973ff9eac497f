package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/bizanalyst/internal/config"
)

// NewClient returns a go-openai client for cfg. A non-empty BaseURL selects
// any provider that speaks the OpenAI chat API.
func NewClient(cfg config.LLMConfig) *openai.Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return openai.NewClientWithConfig(config)
}
