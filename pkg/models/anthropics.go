package models

import (
	"context"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM drives Anthropic's Messages API. It reads ANTHROPIC_API_KEY
// from the environment.
type AnthropicLLM struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

func NewAnthropicLLM(model string) *AnthropicLLM {
	key := os.Getenv("ANTHROPIC_API_KEY")
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(key),
	)
	return &AnthropicLLM{
		Client:    &cl,
		Model:     model, // e.g. "claude-3-5-sonnet-latest"
		MaxTokens: 1024,
	}
}

func (a *AnthropicLLM) Generate(ctx context.Context, history []Turn, system string) (Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, turn := range history {
		block := anthropic.NewTextBlock(turn.Text)
		if turn.Role == RoleModel {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages:  messages,
	}
	if s := strings.TrimSpace(system); s != "" {
		params.System = []anthropic.TextBlockParam{{Text: s}}
	}

	msg, err := a.Client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, err
	}

	var out Response
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			out.Parts = append(out.Parts, Part{Text: tb.Text})
		}
	}
	return out, nil
}

var _ Model = (*AnthropicLLM)(nil)
