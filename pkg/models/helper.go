package models

import (
	"context"
	"fmt"
)

// NewLLMProvider builds the model adapter for the named provider.
func NewLLMProvider(ctx context.Context, provider string, model string) (Model, error) {
	switch provider {
	case "openai":
		return NewOpenAILLM(model), nil
	case "gemini", "google":
		return NewGeminiLLM(ctx, model)
	case "ollama":
		return NewOllamaLLM(model)
	case "anthropic", "claude":
		return NewAnthropicLLM(model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
