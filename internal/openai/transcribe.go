package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// Transcribe распознает речь из аудиоклипа. Формат определяется по имени файла.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("error creating form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("error writing audio: %w", err)
	}

	fields := map[string]string{
		"model":           c.cfg.TranscribeModel,
		"response_format": "text",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("error writing field %s: %w", k, err)
		}
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error closing multipart body: %w", err)
	}

	body, err := c.do(ctx, "/audio/transcriptions", w.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}

	// при response_format=text приходит голый текст
	return strings.TrimSpace(string(body)), nil
}
