package config

import (
	"path/filepath"
	"strings"
)

// Каналы ввода ответа
const (
	ChannelText  = "text"
	ChannelAudio = "audio"
)

// Config представляет конфигурацию интервью
type Config struct {
	Interview InterviewConfig `yaml:"interview"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
}

// InterviewConfig содержит общие настройки интервью
type InterviewConfig struct {
	QuestionCount int      `yaml:"question_count"`
	InputChannels []string `yaml:"input_channels"`
	EnableImage   bool     `yaml:"enable_image"`
	Language      string   `yaml:"language"`
	AudioFormats  []string `yaml:"audio_formats"`
}

// PromptsConfig содержит тексты промптов.
// В шаблоне questions подставляются {count} и {noun}.
type PromptsConfig struct {
	InterviewerRole string `yaml:"interviewer_role"`
	Questions       string `yaml:"questions"`
	WriterRole      string `yaml:"writer_role"`
	Story           string `yaml:"story"`
	Image           string `yaml:"image"`
}

// ArtifactsConfig определяет имена скачиваемых файлов
type ArtifactsConfig struct {
	TextPrefix string `yaml:"text_prefix"`
	AudioName  string `yaml:"audio_name"`
	Docx       bool   `yaml:"docx"`
}

// Default возвращает конфигурацию по умолчанию (вариант на три вопроса)
func Default() *Config {
	return &Config{
		Interview: InterviewConfig{
			QuestionCount: 3,
			InputChannels: []string{ChannelText, ChannelAudio},
			Language:      "ru",
			AudioFormats:  []string{"mp3", "wav", "m4a"},
		},
		Prompts: PromptsConfig{
			InterviewerRole: "Ты интервьюер.",
			Questions: "Придумай {count} личных {noun} для интервью о семейных рецептах, традициях и воспоминаниях. " +
				"Один вопрос — одна строка. Без пояснений.",
			WriterRole: "Ты писатель, создающий трогательные истории.",
			Story:      "На основе диалога напиши тёплую семейную историю (3–5 абзацев), сохранив названия блюд и личные детали.",
			Image: "Kazakh family inside a traditional yurt celebrating Nauryz, " +
				"with traditional Kazakh food like nauryz kozhe, baursak, qazy, " +
				"wearing national clothes, daylight, cultural atmosphere, " +
				"authentic central Asian style, soft lighting, realistic photo",
		},
		Artifacts: ArtifactsConfig{
			TextPrefix: "family_story",
			AudioName:  "family_story.mp3",
		},
	}
}

// Методы для удобного доступа к конфигурации
func (c *Config) GetQuestionCount() int {
	return c.Interview.QuestionCount
}

// HasChannel проверяет, включен ли канал ввода
func (c *Config) HasChannel(channel string) bool {
	for _, ch := range c.Interview.InputChannels {
		if strings.EqualFold(ch, channel) {
			return true
		}
	}
	return false
}

// AcceptsAudio проверяет расширение файла по белому списку форматов
func (c *Config) AcceptsAudio(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, format := range c.Interview.AudioFormats {
		if strings.EqualFold(strings.TrimPrefix(format, "."), ext) {
			return true
		}
	}
	return false
}
