package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

const elevenLabsModel = "eleven_multilingual_v2"

// ElevenLabs озвучивает текст через stream-input websocket и собирает mp3 целиком
type ElevenLabs struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	dialer  *websocket.Dialer
}

type elevenLabsChunk struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewElevenLabs(apiKey, voiceID, baseURL string) *ElevenLabs {
	if baseURL == "" {
		baseURL = "wss://api.elevenlabs.io"
	}
	return &ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		modelID: elevenLabsModel,
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  websocket.DefaultDialer,
	}
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=mp3_44100_128",
		e.baseURL, url.PathEscape(e.voiceID), url.QueryEscape(e.modelID))

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)

	conn, _, err := e.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs connect: %w", err)
	}
	defer conn.Close()

	// ReadMessage не знает про контекст: закрываем соединение при отмене
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	// пробел в начале — начальное сообщение протокола
	if err := conn.WriteJSON(map[string]interface{}{"text": " "}); err != nil {
		return nil, e.wrap(ctx, "elevenlabs init", err)
	}
	if err := conn.WriteJSON(map[string]interface{}{
		"text":                   text,
		"try_trigger_generation": true,
	}); err != nil {
		return nil, e.wrap(ctx, "elevenlabs send", err)
	}
	if err := conn.WriteJSON(map[string]string{"text": ""}); err != nil {
		return nil, e.wrap(ctx, "elevenlabs end signal", err)
	}

	var audio bytes.Buffer
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && audio.Len() > 0 {
				break
			}
			return nil, e.wrap(ctx, "elevenlabs read", err)
		}

		var chunk elevenLabsChunk
		if err := json.Unmarshal(message, &chunk); err != nil {
			return nil, fmt.Errorf("elevenlabs decode: %w", err)
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("elevenlabs error %s: %s", chunk.Error, chunk.Message)
		}

		if chunk.Audio != "" {
			decoded, err := base64.StdEncoding.DecodeString(chunk.Audio)
			if err != nil {
				return nil, fmt.Errorf("elevenlabs base64: %w", err)
			}
			audio.Write(decoded)
		}

		if chunk.IsFinal {
			break
		}
	}

	if audio.Len() == 0 {
		return nil, fmt.Errorf("elevenlabs returned no audio")
	}
	return audio.Bytes(), nil
}

func (e *ElevenLabs) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return fmt.Errorf("%s: %w", op, err)
}
