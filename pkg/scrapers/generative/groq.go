package generative

import (
	"context"
	"errors"
	"fmt"
	"spedify/pkg/models"

	openai "github.com/sashabaranov/go-openai"
)

const (
	GroqBaseURL = "https://api.groq.com/openai/v1"
	GroqModel   = "llama-3.3-70b-versatile"

	systemPrompt = "Extract ALL products from this batch. Return complete JSON array."
)

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GroqGenerator talks to Groq through its OpenAI-compatible endpoint.
type GroqGenerator struct {
	client *openai.Client
	Model  string
}

// NewGroqGenerator returns models.ErrGeneratorUnavailable when apiKey is empty.
func NewGroqGenerator(apiKey string) (*GroqGenerator, error) {
	if apiKey == "" {
		return nil, models.ErrGeneratorUnavailable
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = GroqBaseURL
	return &GroqGenerator{client: openai.NewClientWithConfig(cfg), Model: GroqModel}, nil
}

func (g *GroqGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		MaxTokens:   4000,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("groq completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
