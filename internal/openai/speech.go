package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize озвучивает текст через /audio/speech. Язык модель определяет сама.
func (c *Client) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	payload, err := json.Marshal(speechRequest{
		Model:          c.cfg.TTSModel,
		Input:          text,
		Voice:          c.cfg.TTSVoice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	audio, err := c.do(ctx, "/audio/speech", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("OpenAI API returned empty audio")
	}

	return audio, nil
}
