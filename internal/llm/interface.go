package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client is the chat-completion call an Analyst makes. Tests substitute a
// scripted fake.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}
