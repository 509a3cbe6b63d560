package models

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

type OpenAILLM struct {
	Client *openai.Client
	Model  string
}

func NewOpenAILLM(model string) *OpenAILLM {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY") // fallback
	}
	return &OpenAILLM{Client: openai.NewClient(apiKey), Model: model}
}

func (o *OpenAILLM) Generate(ctx context.Context, history []Turn, system string) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if s := strings.TrimSpace(system); s != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: s,
		})
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: messages,
	})
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("no response from OpenAI")
	}
	return Response{Text: resp.Choices[0].Message.Content}, nil
}

var _ Model = (*OpenAILLM)(nil)
