package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-story-bot/internal/config"
	"family-story-bot/internal/imagegen"
	"family-story-bot/internal/logger"
	"family-story-bot/internal/openai"
	"family-story-bot/internal/speech"
)

func baseAppConfig() *config.AppConfig {
	return &config.AppConfig{
		OpenAI:        config.OpenAIConfig{APIKey: "sk", Model: "gpt-3.5-turbo", TranscribeModel: "whisper-1", MaxTokens: 100, Temperature: 0.7},
		TextSource:    config.TextProviderOpenAI,
		Speech:        config.SpeechConfig{Provider: config.TTSProviderGoogleTranslate},
		Replicate:     config.ReplicateConfig{Model: "black-forest-labs/flux-schnell"},
		RemoteTimeout: 5 * time.Second,
	}
}

func TestNewProvidersSelection(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *config.AppConfig)
		wantTTS  interface{}
		wantImgs bool
	}{
		{"defaults", func(c *config.AppConfig) {}, &speech.GoogleTranslate{}, false},
		{"openai tts", func(c *config.AppConfig) { c.Speech.Provider = config.TTSProviderOpenAI }, &openai.Client{}, false},
		{"elevenlabs", func(c *config.AppConfig) {
			c.Speech.Provider = config.TTSProviderElevenLabs
			c.Speech.ElevenLabsAPIKey = "el"
		}, &speech.ElevenLabs{}, false},
		{"replicate", func(c *config.AppConfig) { c.Replicate.APIToken = "r8" }, &speech.GoogleTranslate{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appCfg := baseAppConfig()
			tt.mutate(appCfg)

			p, err := NewProviders(context.Background(), appCfg, logger.Nop())
			require.NoError(t, err)

			assert.IsType(t, &openai.Client{}, p.Text)
			assert.IsType(t, &openai.Client{}, p.Transcriber)
			assert.IsType(t, tt.wantTTS, p.Synthesizer)
			if tt.wantImgs {
				assert.IsType(t, &imagegen.Replicate{}, p.Images)
			} else {
				assert.Nil(t, p.Images)
			}
		})
	}
}

func TestNewInterviewAppliesSpeechLanguage(t *testing.T) {
	appCfg := baseAppConfig()
	appCfg.Speech.Language = "kk"

	p, err := NewProviders(context.Background(), appCfg, logger.Nop())
	require.NoError(t, err)

	cfg := config.Default()
	ctrl := p.NewInterview(cfg, nil)

	assert.Equal(t, "kk", ctrl.Config().Interview.Language)
	assert.Equal(t, "ru", cfg.Interview.Language, "общий снимок не меняется")
}

func TestDescribe(t *testing.T) {
	appCfg := baseAppConfig()
	appCfg.Replicate.APIToken = "r8"
	p, err := NewProviders(context.Background(), appCfg, logger.Nop())
	require.NoError(t, err)

	cfg := config.Default()
	lines := p.Describe(cfg)
	assert.Contains(t, lines, "• Изображение: отключено")

	cfg.Interview.EnableImage = true
	assert.Contains(t, p.Describe(cfg), "• Изображение: black-forest-labs/flux-schnell")
}
