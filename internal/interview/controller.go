package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"family-story-bot/internal/artifact"
	"family-story-bot/internal/config"
	"family-story-bot/internal/logger"
	"family-story-bot/internal/prompts"
)

const defaultTimeout = 30 * time.Second

// Deps — внешние сервисы, которые вызывает контроллер
type Deps struct {
	Text        TextGenerator
	Transcriber Transcriber
	Synthesizer Synthesizer
	// Images может быть nil: картинка отключена
	Images  ImageGenerator
	Timeout time.Duration
	Logger  logger.Logger
	Now     func() time.Time
	// OnCall вызывается после каждого удаленного вызова (метрики)
	OnCall func(op string, err error)
}

// Answer — ответ пользователя: текст или аудиоклип
type Answer struct {
	Text     string
	Audio    []byte
	Filename string
}

// View — то, что хост должен показать после отрисовки
type View struct {
	Status   Status
	Index    int
	Total    int
	Question string
	// Transcribed заполняется, если ответ пришел голосом
	Transcribed  string
	Deliverables *Deliverables
}

// Deliverables — итоговые артефакты сессии
type Deliverables struct {
	Story string
	Text  artifact.File
	Audio *artifact.File
	Docx  *artifact.File
	Image *Image
	// Warnings — ошибки необязательных артефактов (озвучка, docx, картинка)
	Warnings []error
}

// Controller ведет одну сессию интервью. Не потокобезопасен:
// хост обязан сериализовать вызовы одной сессии.
type Controller struct {
	session *Session
	cfg     *config.Config
	deps    Deps
	logger  logger.Logger
}

// NewController создает контроллер с новой сессией и снимком конфигурации
func NewController(cfg *config.Config, deps Deps) *Controller {
	if deps.Timeout <= 0 {
		deps.Timeout = defaultTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}

	c := &Controller{
		session: NewSession(deps.Now()),
		cfg:     cfg,
		deps:    deps,
	}
	c.logger = deps.Logger.Named("interview " + c.session.ID[:8])
	return c
}

// Session возвращает копию текущей сессии
func (c *Controller) Session() Session {
	return c.session.Snapshot()
}

// Config возвращает снимок конфигурации, с которым идет сессия
func (c *Controller) Config() *config.Config {
	return c.cfg
}

// Render выполняет эффекты текущего состояния и возвращает, что показать.
// Повторный вызов не повторяет уже выполненные удаленные вызовы.
func (c *Controller) Render(ctx context.Context) (*View, error) {
	for {
		_, effects, err := Dispatch(c.session, Event{Kind: EventRender})
		if err != nil {
			return c.view(), err
		}

		progressed := false
		for _, effect := range effects {
			switch effect {
			case EffectGenerateQuestions:
				if err := c.generateQuestions(ctx); err != nil {
					return c.view(), err
				}
				progressed = true

			case EffectGenerateStory:
				if err := c.generateStory(ctx); err != nil {
					return c.view(), err
				}
				progressed = true

			case EffectAsk:
				return c.view(), nil

			case EffectDeliver:
				view := c.view()
				view.Deliverables = c.deliver(ctx)
				return view, nil
			}
		}

		if !progressed {
			return c.view(), nil
		}
	}
}

// Submit принимает ответ на текущий вопрос. Побеждает первый непустой текст:
// сначала набранный, затем распознанный из аудио.
func (c *Controller) Submit(ctx context.Context, answer Answer) (*View, error) {
	if c.session.Status != StatusAsking {
		return c.view(), invalidTransition(c.session.Status, EventAnswer)
	}

	text, transcribed, err := c.resolveAnswer(ctx, answer)
	if err != nil {
		return c.view(), err
	}

	if err := c.dispatch(Event{Kind: EventAnswer, Text: text}); err != nil {
		return c.view(), err
	}

	c.logger.Info(ctx, "Принят ответ %d/%d (%d символов)",
		c.session.CurrentIndex(), len(c.session.Questions), len([]rune(text)))

	view := c.view()
	view.Transcribed = transcribed
	return view, nil
}

// RegenerateAudio заново озвучивает готовую историю и обновляет кэш
func (c *Controller) RegenerateAudio(ctx context.Context) ([]byte, error) {
	if c.session.Status != StatusDone {
		return nil, newError(KindState, "история еще не готова", nil)
	}

	audio, err := c.synthesize(ctx, c.session.Story)
	if err != nil {
		return nil, err
	}
	c.session.Audio = audio
	return audio, nil
}

func (c *Controller) resolveAnswer(ctx context.Context, answer Answer) (string, string, error) {
	if strings.TrimSpace(answer.Text) != "" {
		if !c.cfg.HasChannel(config.ChannelText) {
			return "", "", newError(KindValidation, "Текстовые ответы отключены, пришлите аудио.", nil)
		}
		return answer.Text, "", nil
	}

	if len(answer.Audio) == 0 {
		return "", "", newError(KindValidation, "Пожалуйста, дайте ответ.", nil)
	}

	if !c.cfg.HasChannel(config.ChannelAudio) {
		return "", "", newError(KindValidation, "Голосовые ответы отключены, напишите ответ текстом.", nil)
	}
	if !c.cfg.AcceptsAudio(answer.Filename) {
		return "", "", newError(KindValidation,
			fmt.Sprintf("Формат файла не поддерживается. Допустимы: %s.",
				strings.Join(c.cfg.Interview.AudioFormats, ", ")), nil)
	}

	var text string
	err := c.call(ctx, "transcribe", func(ctx context.Context) error {
		var err error
		text, err = c.deps.Transcriber.Transcribe(ctx, answer.Audio, answer.Filename)
		return err
	})
	if err != nil {
		c.logger.Warn(ctx, "Ошибка распознавания %s: %v", answer.Filename, err)
		return "", "", newError(KindTranscription, "ошибка при распознавании", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", newError(KindValidation, "Не удалось распознать речь, попробуйте ещё раз или напишите текстом.", nil)
	}

	return text, text, nil
}

func (c *Controller) generateQuestions(ctx context.Context) error {
	count := c.cfg.GetQuestionCount()
	prompt := prompts.QuestionsPrompt(c.cfg.Prompts.Questions, count)

	var raw string
	err := c.call(ctx, "questions", func(ctx context.Context) error {
		var err error
		raw, err = c.deps.Text.Complete(ctx, c.cfg.Prompts.InterviewerRole, prompt)
		return err
	})
	if err != nil {
		c.logger.Error(ctx, "Ошибка генерации вопросов: %v", err)
		return newError(KindGeneration, "не удалось получить вопросы", err)
	}

	questions, err := ParseQuestions(raw, count)
	if err != nil {
		c.logger.Warn(ctx, "Модель вернула мало вопросов: %v", err)
		return err
	}

	if err := c.dispatch(Event{Kind: EventQuestionsReady, Questions: questions}); err != nil {
		return err
	}

	c.logger.Info(ctx, "Сгенерировано %d вопросов", len(questions))
	return nil
}

func (c *Controller) generateStory(ctx context.Context) error {
	transcript := FormatTranscript(c.session.Pairs())
	prompt := prompts.StoryPrompt(c.cfg.Prompts.Story, transcript)

	var story string
	err := c.call(ctx, "story", func(ctx context.Context) error {
		var err error
		story, err = c.deps.Text.Complete(ctx, c.cfg.Prompts.WriterRole, prompt)
		return err
	})
	if err != nil {
		c.logger.Error(ctx, "Ошибка генерации истории: %v", err)
		return newError(KindGeneration, "не удалось написать историю", err)
	}

	if err := c.dispatch(Event{Kind: EventStoryReady, Text: story}); err != nil {
		return err
	}

	c.session.CompletedAt = c.deps.Now()
	c.logger.Info(ctx, "История готова (%d символов)", len([]rune(c.session.Story)))
	return nil
}

func (c *Controller) deliver(ctx context.Context) *Deliverables {
	s := c.session
	out := &Deliverables{
		Story: s.Story,
		Text:  artifact.TextFile(c.cfg.Artifacts.TextPrefix, s.Story, s.CompletedAt),
	}

	if s.Audio == nil {
		audio, err := c.synthesize(ctx, s.Story)
		if err != nil {
			c.logger.Warn(ctx, "Озвучка не получена: %v", err)
			out.Warnings = append(out.Warnings, err)
		} else {
			s.Audio = audio
		}
	}
	if s.Audio != nil {
		audio := artifact.AudioFile(c.cfg.Artifacts.AudioName, s.Audio)
		out.Audio = &audio
	}

	if c.cfg.Artifacts.Docx {
		doc, err := artifact.DocxFile(c.cfg.Artifacts.TextPrefix, "Семейная история", s.Story)
		if err != nil {
			c.logger.Warn(ctx, "Документ не собран: %v", err)
			out.Warnings = append(out.Warnings, err)
		} else {
			out.Docx = &doc
		}
	}

	if c.deps.Images != nil && c.cfg.Interview.EnableImage && !s.imageTried {
		s.imageTried = true
		var img *Image
		err := c.call(ctx, "image", func(ctx context.Context) error {
			var err error
			img, err = c.deps.Images.Generate(ctx, c.cfg.Prompts.Image)
			return err
		})
		if err != nil {
			c.logger.Warn(ctx, "Картинка не получена: %v", err)
			out.Warnings = append(out.Warnings, newError(KindImage, "не удалось сгенерировать изображение", err))
		} else {
			s.Image = img
		}
	}
	out.Image = s.Image

	return out
}

func (c *Controller) synthesize(ctx context.Context, text string) ([]byte, error) {
	var audio []byte
	err := c.call(ctx, "synthesize", func(ctx context.Context) error {
		var err error
		audio, err = c.deps.Synthesizer.Synthesize(ctx, text, c.cfg.Interview.Language)
		return err
	})
	if err != nil {
		return nil, newError(KindSynthesis, "не удалось озвучить историю", err)
	}
	if len(audio) == 0 {
		return nil, newError(KindSynthesis, "сервис озвучки вернул пустой файл", nil)
	}
	return audio, nil
}

// call выполняет удаленный вызов с таймаутом
func (c *Controller) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.deps.Timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		// адаптер мог потерять причину; сохраняем ее для errors.Is
		err = fmt.Errorf("%w: %v", ctx.Err(), err)
	}

	c.logger.Debug(ctx, "%s: %v (ошибка: %v)", op, time.Since(start).Round(time.Millisecond), err)
	if c.deps.OnCall != nil {
		c.deps.OnCall(op, err)
	}
	return err
}

func (c *Controller) dispatch(ev Event) error {
	next, _, err := Dispatch(c.session, ev)
	if err != nil {
		return err
	}
	apply(c.session, ev, next)
	return nil
}

func (c *Controller) view() *View {
	s := c.session
	v := &View{
		Status: s.Status,
		Index:  s.CurrentIndex(),
		Total:  len(s.Questions),
	}
	if q, ok := s.CurrentQuestion(); ok {
		v.Question = q
	}
	return v
}
