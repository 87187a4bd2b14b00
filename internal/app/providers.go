package app

import (
	"context"
	"fmt"

	"family-story-bot/internal/config"
	"family-story-bot/internal/gemini"
	"family-story-bot/internal/imagegen"
	"family-story-bot/internal/interview"
	"family-story-bot/internal/logger"
	"family-story-bot/internal/metrics"
	"family-story-bot/internal/openai"
	"family-story-bot/internal/speech"
)

// Providers — внешние сервисы, выбранные по переменным окружения
type Providers struct {
	Text        interview.TextGenerator
	Transcriber interview.Transcriber
	Synthesizer interview.Synthesizer
	// Images nil, если REPLICATE_API_TOKEN не задан
	Images interview.ImageGenerator

	appCfg *config.AppConfig
	logger logger.Logger
}

// NewProviders собирает адаптеры. OpenAI нужен всегда: через него идет распознавание речи.
func NewProviders(ctx context.Context, appCfg *config.AppConfig, log logger.Logger) (*Providers, error) {
	oa := openai.NewClient(appCfg.OpenAI)

	p := &Providers{
		Text:        oa,
		Transcriber: oa,
		appCfg:      appCfg,
		logger:      log,
	}

	if appCfg.TextSource == config.TextProviderGemini {
		gc, err := gemini.NewClient(ctx, appCfg.Gemini, appCfg.OpenAI.Temperature)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации Gemini: %w", err)
		}
		p.Text = gc
	}

	switch appCfg.Speech.Provider {
	case config.TTSProviderOpenAI:
		p.Synthesizer = oa
	case config.TTSProviderElevenLabs:
		p.Synthesizer = speech.NewElevenLabs(appCfg.Speech.ElevenLabsAPIKey, appCfg.Speech.ElevenLabsVoice, "")
	default:
		p.Synthesizer = speech.NewGoogleTranslate("", nil)
	}

	if appCfg.Replicate.APIToken != "" {
		p.Images = imagegen.NewReplicate(appCfg.Replicate, "", nil)
	}

	return p, nil
}

// Describe возвращает строки для стартового баннера
func (p *Providers) Describe(cfg *config.Config) []string {
	text := p.appCfg.OpenAI.Model
	if p.appCfg.TextSource == config.TextProviderGemini {
		text = p.appCfg.Gemini.Model
	}

	image := "отключено"
	if p.appCfg.ImageEnabled(cfg) {
		image = p.appCfg.Replicate.Model
	}

	return []string{
		fmt.Sprintf("• Генерация текста: %s (%s)", p.appCfg.TextSource, text),
		fmt.Sprintf("• Распознавание речи: %s", p.appCfg.OpenAI.TranscribeModel),
		fmt.Sprintf("• Озвучка: %s", p.appCfg.Speech.Provider),
		fmt.Sprintf("• Изображение: %s", image),
		fmt.Sprintf("• Вопросов в интервью: %d", cfg.GetQuestionCount()),
	}
}

// NewInterview создает контроллер на снимке конфигурации. m может быть nil.
func (p *Providers) NewInterview(cfg *config.Config, m *metrics.Metrics) *interview.Controller {
	deps := interview.Deps{
		Text:        p.Text,
		Transcriber: p.Transcriber,
		Synthesizer: p.Synthesizer,
		Timeout:     p.appCfg.RemoteTimeout,
		Logger:      p.logger,
	}
	if p.Images != nil && p.appCfg.ImageEnabled(cfg) {
		deps.Images = p.Images
	}
	if m != nil {
		deps.OnCall = m.ObserveCall
	}

	// язык озвучки из окружения важнее языка интервью
	if lang := p.appCfg.Speech.Language; lang != "" && lang != cfg.Interview.Language {
		clone := *cfg
		clone.Interview.Language = lang
		cfg = &clone
	}

	return interview.NewController(cfg, deps)
}
