package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Провайдеры генерации текста и синтеза речи
const (
	TextProviderOpenAI = "openai"
	TextProviderGemini = "gemini"

	TTSProviderGoogleTranslate = "gtranslate"
	TTSProviderOpenAI          = "openai"
	TTSProviderElevenLabs      = "elevenlabs"
)

type AppConfig struct {
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Speech     SpeechConfig
	Replicate  ReplicateConfig
	Telegram   TelegramConfig
	Auth       AuthConfig
	Paths      PathsConfig
	TextSource string

	RemoteTimeout time.Duration
	LogLevel      string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type SpeechConfig struct {
	Provider         string
	Language         string
	ElevenLabsAPIKey string
	ElevenLabsVoice  string
}

type ReplicateConfig struct {
	APIToken string
	Model    string
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type AuthConfig struct {
	SecretToken string
}

type PathsConfig struct {
	InterviewConfig string
	ResultsDir      string
	OutputDir       string
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		OpenAI:     *LoadOpenAIConfig(),
		TextSource: strings.ToLower(getEnv("TEXT_PROVIDER", TextProviderOpenAI)),
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Speech: SpeechConfig{
			Provider:         strings.ToLower(getEnv("TTS_PROVIDER", TTSProviderGoogleTranslate)),
			Language:         getEnv("TTS_LANGUAGE", ""),
			ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
			ElevenLabsVoice:  getEnv("ELEVENLABS_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		},
		Replicate: ReplicateConfig{
			APIToken: getEnv("REPLICATE_API_TOKEN", ""),
			Model:    getEnv("REPLICATE_MODEL", "black-forest-labs/flux-schnell"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TELEGRAM_BOT_TOKEN", ""),
			Debug: getEnvAsBool("TELEGRAM_DEBUG", false),
		},
		Auth: AuthConfig{
			SecretToken: getEnv("SECRET_TOKEN", ""),
		},
		Paths: PathsConfig{
			InterviewConfig: getEnv("INTERVIEW_CONFIG", "config/interview.yaml"),
			ResultsDir:      getEnv("RESULTS_DIR", "results"),
			OutputDir:       getEnv("OUTPUT_DIR", "output"),
		},
		RemoteTimeout: getEnvAsDuration("REMOTE_TIMEOUT", 30*time.Second),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Validate проверяет, что заданы ключи для выбранных провайдеров
func (c *AppConfig) Validate() error {
	if c.Auth.SecretToken == "" {
		return fmt.Errorf("SECRET_TOKEN не установлен")
	}

	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT должен быть положительным")
	}

	// OpenAI нужен всегда: через него идет распознавание речи
	if err := c.OpenAI.ValidateConfig(); err != nil {
		return err
	}

	switch c.TextSource {
	case TextProviderOpenAI:
	case TextProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY обязателен для TEXT_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("неизвестный TEXT_PROVIDER %q", c.TextSource)
	}

	switch c.Speech.Provider {
	case TTSProviderGoogleTranslate, TTSProviderOpenAI:
	case TTSProviderElevenLabs:
		if c.Speech.ElevenLabsAPIKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY обязателен для TTS_PROVIDER=elevenlabs")
		}
	default:
		return fmt.Errorf("неизвестный TTS_PROVIDER %q", c.Speech.Provider)
	}

	return nil
}

// ImageEnabled — картинка генерируется, только если она включена в интервью и есть токен
func (c *AppConfig) ImageEnabled(cfg *Config) bool {
	return cfg.Interview.EnableImage && c.Replicate.APIToken != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
