package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"family-story-bot/internal/config"
)

// Client генерирует текст через Gemini API
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

// Option настраивает клиента
type Option func(*genai.ClientConfig)

// WithBaseURL переопределяет адрес API (тесты, прокси)
func WithBaseURL(baseURL string) Option {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = baseURL
	}
}

func NewClient(ctx context.Context, cfg config.GeminiConfig, temperature float64, opts ...Option) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		temperature: float32(temperature),
	}, nil
}

// Complete отправляет промпт с системной инструкцией и склеивает текстовые части ответа
func (c *Client) Complete(ctx context.Context, systemRole, userPrompt string) (string, error) {
	temperature := c.temperature
	gc := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemRole}},
		},
		Temperature: &temperature,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), gc)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
		var sb strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}

	return "", fmt.Errorf("empty response from Gemini")
}
