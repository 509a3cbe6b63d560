package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

type OllamaLLM struct {
	Client *ollama.Client
	Model  string
}

func NewOllamaLLM(model string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	return &OllamaLLM{Client: ollama.NewClient(u, httpClient), Model: model}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, history []Turn, system string) (Response, error) {
	messages := make([]ollama.Message, 0, len(history)+1)
	if s := strings.TrimSpace(system); s != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: s})
	}
	for _, turn := range history {
		role := "user"
		if turn.Role == RoleModel {
			role = "assistant"
		}
		messages = append(messages, ollama.Message{Role: role, Content: turn.Text})
	}

	stream := false
	req := &ollama.ChatRequest{
		Model:    o.Model,
		Messages: messages,
		Stream:   &stream,
	}

	var text strings.Builder
	if err := o.Client.Chat(ctx, req, func(cr ollama.ChatResponse) error {
		text.WriteString(cr.Message.Content)
		return nil
	}); err != nil {
		return Response{}, err
	}

	return Response{Text: text.String()}, nil
}

var _ Model = (*OllamaLLM)(nil)
