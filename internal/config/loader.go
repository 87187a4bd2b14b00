package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load загружает конфигурацию из YAML файла поверх значений по умолчанию
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}

	return Parse(data)
}

// Parse разбирает YAML и проверяет результат
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("ошибка валидации конфигурации: %w", err)
	}

	return config, nil
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if config.Interview.QuestionCount <= 0 {
		return fmt.Errorf("question_count должно быть больше 0")
	}

	if len(config.Interview.InputChannels) == 0 {
		return fmt.Errorf("нужен хотя бы один канал в input_channels")
	}

	for _, ch := range config.Interview.InputChannels {
		switch strings.ToLower(ch) {
		case ChannelText, ChannelAudio:
		default:
			return fmt.Errorf("неизвестный канал ввода %q (допустимы text, audio)", ch)
		}
	}

	if config.HasChannel(ChannelAudio) && len(config.Interview.AudioFormats) == 0 {
		return fmt.Errorf("audio_formats не может быть пустым при включенном канале audio")
	}

	if config.Interview.Language == "" {
		return fmt.Errorf("language должен быть задан")
	}

	prompts := map[string]string{
		"prompts.interviewer_role": config.Prompts.InterviewerRole,
		"prompts.questions":        config.Prompts.Questions,
		"prompts.writer_role":      config.Prompts.WriterRole,
		"prompts.story":            config.Prompts.Story,
	}
	for name, value := range prompts {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s не может быть пустым", name)
		}
	}

	if config.Interview.EnableImage && strings.TrimSpace(config.Prompts.Image) == "" {
		return fmt.Errorf("prompts.image обязателен при enable_image")
	}

	if config.Artifacts.TextPrefix == "" || config.Artifacts.AudioName == "" {
		return fmt.Errorf("artifacts.text_prefix и artifacts.audio_name должны быть заданы")
	}

	return nil
}
