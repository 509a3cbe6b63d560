package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiLLM struct {
	Client *genai.Client
	Model  string
}

func NewGeminiLLM(ctx context.Context, model string) (*GeminiLLM, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY or GOOGLE_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, history []Turn, system string) (Response, error) {
	if len(history) == 0 {
		return Response{}, errors.New("gemini: empty history")
	}

	model := g.Client.GenerativeModel(g.Model)
	model.ResponseMIMEType = "text/plain"
	if s := strings.TrimSpace(system); s != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}

	// The chat session wants everything but the latest turn as history and
	// the latest turn as the message to answer.
	session := model.StartChat()
	for _, turn := range history[:len(history)-1] {
		session.History = append(session.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(history[len(history)-1].Text))
	if err != nil {
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Response{}, errors.New("gemini: empty response")
	}

	var out Response
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.Parts = append(out.Parts, Part{Text: string(text)})
		}
	}
	return out, nil
}

var _ Model = (*GeminiLLM)(nil)
