package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/bizanalyst/internal/logger"
)

// ContextTurns is how many trailing history entries are quoted back to the model.
const ContextTurns = 6

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("no response generated")

// DefaultSystemPrompt describes the business analyst persona.
const DefaultSystemPrompt = `You are an AI Business Analyzer assistant specializing in helping entrepreneurs and business professionals. Your capabilities include:

1. **Business Idea Generation**: Create unique, innovative business concepts with detailed analysis
2. **Market Analysis**: Provide comprehensive market research, competitor insights, and industry trends
3. **Financial Projections**: Develop realistic financial models, revenue forecasts, and cost structures
4. **Marketing Strategies**: Design effective marketing plans, customer acquisition strategies, and growth tactics
5. **Business Data Analysis**: Interpret business metrics, identify trends, and provide actionable recommendations

Guidelines:
- Be specific and actionable in your advice
- Provide concrete examples and real-world insights
- Consider current market trends and economic conditions
- Tailor responses to the user's context
- Vary your responses and avoid repetitive patterns
- Use data and statistics when relevant
- Be creative and think outside the box`

const questionTemplate = `Current conversation context:
%s

User's new question: %s

Provide a detailed, helpful response:`

const analysisTemplate = `Analyze this business data file and provide comprehensive insights:

Filename: %s
File Content:
%s

Please provide a detailed analysis including:

1. **Key Metrics Summary**
   - Identify the main performance indicators
   - Highlight significant numbers and trends

2. **Trend Analysis**
   - Revenue patterns and growth trends
   - Expense analysis and cost structure
   - Profit margins and profitability

3. **Performance Insights**
   - Strong performing areas
   - Areas needing improvement
   - Seasonal patterns or anomalies

4. **Actionable Recommendations**
   - Specific steps to improve performance
   - Cost optimization opportunities
   - Revenue growth strategies

5. **Risk Assessment**
   - Potential concerns or red flags
   - Areas requiring attention

6. **Next Steps**
   - Immediate actions to take
   - Long-term strategic recommendations

Be specific with numbers from the data and provide concrete, actionable advice.`

// Turn is one prior conversation entry as seen by the model.
type Turn struct {
	Role    string
	Content string
}

// Analyst answers business questions and analyzes data files through an LLM.
type Analyst struct {
	client       Client
	model        string
	systemPrompt string
}

// NewAnalyst returns an analyst using model. An empty systemPrompt selects
// DefaultSystemPrompt.
func NewAnalyst(client Client, model, systemPrompt string) *Analyst {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Analyst{client: client, model: model, systemPrompt: systemPrompt}
}

// Model returns the model name sent with every request.
func (a *Analyst) Model() string {
	return a.model
}

// Answer replies to question given the prior conversation.
func (a *Analyst) Answer(ctx context.Context, question string, history []Turn) (string, error) {
	prompt := fmt.Sprintf(questionTemplate, conversationContext(history), question)
	return a.complete(ctx, prompt)
}

// AnalyzeFile asks for a structured analysis of a data file.
func (a *Analyst) AnalyzeFile(ctx context.Context, filename, content string) (string, error) {
	return a.complete(ctx, fmt.Sprintf(analysisTemplate, filename, content))
}

func (a *Analyst) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	logger.L.Debug("sending request to LLM", "model", a.model, "prompt_len", len(prompt))
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// conversationContext quotes the last ContextTurns entries. A history of a
// single entry is just the question being asked and adds nothing.
func conversationContext(history []Turn) string {
	if len(history) <= 1 {
		return "No previous context"
	}
	if len(history) > ContextTurns {
		history = history[len(history)-ContextTurns:]
	}

	var b strings.Builder
	for _, t := range history {
		switch t.Role {
		case "user":
			fmt.Fprintf(&b, "User: %s\n", t.Content)
		case "assistant":
			fmt.Fprintf(&b, "Assistant: %s\n", t.Content)
		}
	}
	if b.Len() == 0 {
		return "No previous context"
	}
	return b.String()
}
