package console

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"family-story-bot/internal/artifact"
	"family-story-bot/internal/interview"
	"family-story-bot/internal/logger"
	"family-story-bot/internal/storage"
)

const maxTokenAttempts = 3

// Host проводит одно интервью в терминале
type Host struct {
	prompter     *TerminalPrompter
	gate         *interview.Gate
	newInterview func() *interview.Controller
	outputDir    string
	archive      *storage.Archive
	logger       logger.Logger
}

func NewHost(prompter *TerminalPrompter, gate *interview.Gate, newInterview func() *interview.Controller,
	outputDir string, archive *storage.Archive, log logger.Logger) *Host {
	if log == nil {
		log = logger.Nop()
	}
	return &Host{
		prompter:     prompter,
		gate:         gate,
		newInterview: newInterview,
		outputDir:    outputDir,
		archive:      archive,
		logger:       log.Named("console"),
	}
}

// Run проверяет токен, задает вопросы и сохраняет артефакты в outputDir
func (h *Host) Run(ctx context.Context) error {
	if err := h.authenticate(ctx); err != nil {
		return err
	}

	ctrl := h.newInterview()
	cfg := ctrl.Config()
	h.prompter.ShowMessage(fmt.Sprintf("\n🎯 Интервью о семейных рецептах и традициях: %d вопр.", cfg.GetQuestionCount()))
	h.prompter.ShowMessage("Ответ можно набрать текстом или указать аудиофайл: @путь/к/ответу.m4a. /quit — выход.\n")

	for {
		view, err := ctrl.Render(ctx)
		if err != nil {
			h.prompter.ShowError(interview.UserMessage(err))
			retry, perr := h.prompter.Confirm(ctx, "Повторить?")
			if perr != nil {
				return perr
			}
			if !retry {
				return err
			}
			continue
		}

		switch view.Status {
		case interview.StatusAsking:
			quit, err := h.ask(ctx, ctrl, view)
			if err != nil || quit {
				return err
			}
		case interview.StatusDone:
			return h.deliver(ctx, ctrl, view.Deliverables)
		}
	}
}

func (h *Host) authenticate(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		var token string
		token, err = h.prompter.PromptSecret(ctx, "🔐 Введите токен доступа")
		if err != nil {
			return err
		}
		if err = h.gate.Verify(token); err == nil {
			h.prompter.ShowSuccess("Доступ разрешён")
			return nil
		}
		h.prompter.ShowError(interview.UserMessage(err))
	}
	return err
}

func (h *Host) ask(ctx context.Context, ctrl *interview.Controller, view *interview.View) (bool, error) {
	h.prompter.ShowMessage(fmt.Sprintf("❓ Вопрос %d/%d: %s", view.Index+1, view.Total, view.Question))

	input, err := h.prompter.Prompt(ctx, "Ответ")
	if err != nil {
		return false, err
	}
	if input == "/quit" {
		h.prompter.ShowMessage("🛑 Интервью остановлено.")
		return true, nil
	}

	answer, err := readAnswer(input)
	if err != nil {
		h.prompter.ShowError("❌ " + err.Error())
		return false, nil
	}

	next, err := ctrl.Submit(ctx, answer)
	if err != nil {
		h.prompter.ShowError(interview.UserMessage(err))
		return false, nil
	}
	if next.Transcribed != "" {
		h.prompter.ShowMessage("🎙 Распознано: " + next.Transcribed)
	}
	if next.Status == interview.StatusGenerating {
		h.prompter.ShowMessage("\n✍️ Пишу вашу семейную историю...")
	}
	return false, nil
}

// readAnswer превращает "@файл" в аудиоответ, остальное — в текст
func readAnswer(input string) (interview.Answer, error) {
	if !strings.HasPrefix(input, "@") {
		return interview.Answer{Text: input}, nil
	}

	path := strings.TrimSpace(strings.TrimPrefix(input, "@"))
	data, err := os.ReadFile(path)
	if err != nil {
		return interview.Answer{}, fmt.Errorf("не удалось прочитать файл %s: %w", path, err)
	}
	return interview.Answer{Audio: data, Filename: filepath.Base(path)}, nil
}

func (h *Host) deliver(ctx context.Context, ctrl *interview.Controller, d *interview.Deliverables) error {
	h.prompter.ShowMessage("\n📖 Ваша семейная история:\n")
	h.prompter.ShowMessage(d.Story)
	h.prompter.ShowMessage("")

	files := []artifact.File{d.Text}
	if d.Audio != nil {
		files = append(files, *d.Audio)
	}
	if d.Docx != nil {
		files = append(files, *d.Docx)
	}
	if d.Image != nil && len(d.Image.Data) > 0 {
		files = append(files, artifact.File{Name: "family_story_image" + imageExt(d.Image.ContentType), MIME: d.Image.ContentType, Data: d.Image.Data})
	} else if d.Image != nil && d.Image.URL != "" {
		h.prompter.ShowMessage("🎨 Изображение: " + d.Image.URL)
	}

	var names []string
	for _, f := range files {
		path, err := artifact.Save(h.outputDir, f)
		if err != nil {
			return err
		}
		names = append(names, f.Name)
		h.prompter.ShowSuccess("Сохранено: " + path)
	}

	for _, w := range d.Warnings {
		h.prompter.ShowError(interview.UserMessage(w))
	}

	if h.archive.Enabled() {
		s := ctrl.Session()
		if _, err := h.archive.SaveResult(storage.NewResult(s, ctrl.Config().Interview.Language, names)); err != nil {
			h.logger.Warn(ctx, "Ошибка сохранения результата: %v", err)
		}
	}

	return nil
}

func imageExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".webp"
	}
}
