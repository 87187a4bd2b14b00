package telegram

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"family-story-bot/internal/config"
	"family-story-bot/internal/interview"
	"family-story-bot/internal/logger"
	"family-story-bot/internal/metrics"
	"family-story-bot/internal/prompts"
	"family-story-bot/internal/storage"
)

const (
	maxMessageRunes = 4000
	sessionTTL      = 24 * time.Hour
)

type RateLimiter struct {
	requests map[int64][]time.Time
	mutex    sync.RWMutex
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *RateLimiter) IsAllowed(userID int64) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	if requests, exists := rl.requests[userID]; exists {
		var valid []time.Time
		for _, t := range requests {
			if now.Sub(t) < rl.window {
				valid = append(valid, t)
			}
		}
		rl.requests[userID] = valid
	}

	if len(rl.requests[userID]) >= rl.limit {
		return false
	}

	rl.requests[userID] = append(rl.requests[userID], now)
	return true
}

// Services — зависимости обработчика
type Services struct {
	Store *config.Store
	// NewInterview создает контроллер на снимке конфигурации
	NewInterview func(cfg *config.Config) *interview.Controller
	Gate         *interview.Gate
	Archive      *storage.Archive
	Metrics      *metrics.Metrics
	Logger       logger.Logger
}

type Handler struct {
	bot           *Bot
	svc           Services
	logger        logger.Logger
	sessions      map[int64]*UserSession
	sessionsMutex sync.RWMutex
	rateLimiter   *RateLimiter
}

func NewHandler(bot *Bot, svc Services) *Handler {
	if svc.Logger == nil {
		svc.Logger = logger.Nop()
	}
	if svc.Metrics == nil {
		svc.Metrics = metrics.NewMetrics()
	}
	return &Handler{
		bot:         bot,
		svc:         svc,
		logger:      svc.Logger.Named("handler"),
		sessions:    make(map[int64]*UserSession),
		rateLimiter: NewRateLimiter(10, time.Minute),
	}
}

// StartSessionCleanup раз в час удаляет неактивные сессии и пишет метрики в лог
func (h *Handler) StartSessionCleanup(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := h.cleanupInactiveSessions(time.Now())
				s := h.svc.Metrics.GetSnapshot()
				h.logger.Info(ctx, "📊 Сессий удалено: %d; начато: %d, ответов: %d/%d, историй: %d, вызовов API: %d/%d",
					removed, s.SessionsStarted, s.AnswersAccepted, s.AnswersAccepted+s.AnswersRejected,
					s.StoriesGenerated, s.APICallsSuccessful, s.APICallsTotal)
			}
		}
	}()
}

func (h *Handler) cleanupInactiveSessions(now time.Time) int {
	h.sessionsMutex.Lock()
	defer h.sessionsMutex.Unlock()

	cutoff := now.Add(-sessionTTL)
	removed := 0
	for uid, sess := range h.sessions {
		// занятая сессия активна прямо сейчас, ее не трогаем
		if !sess.mu.TryLock() {
			continue
		}
		if sess.LastActivity.Before(cutoff) {
			sess.removed = true
			delete(h.sessions, uid)
			removed++
		}
		sess.mu.Unlock()
	}
	return removed
}

func (h *Handler) HandleUpdate(ctx context.Context, update Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if !h.rateLimiter.IsAllowed(userID) {
		h.bot.SendMessage(chatID, "⏳ Слишком много сообщений. Пожалуйста, подождите минуту.")
		return
	}

	session := h.lockSession(userID)
	defer session.mu.Unlock()

	session.ChatID = chatID
	session.LastActivity = time.Now()

	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, chatID, text, session)
		return
	}

	switch session.State {
	case StateAwaitingToken:
		h.handleToken(ctx, chatID, text, session)
	case StateInterview:
		h.handleAnswer(ctx, chatID, msg, session)
	case StateCompleted:
		h.bot.SendMessage(chatID, "✅ История уже готова. /story — прислать её ещё раз, /restart — новое интервью.")
	default:
		h.bot.SendMessage(chatID, "Используйте /start для начала интервью или /help для помощи.")
	}
}

// handleCommand обрабатывает команды бота
func (h *Handler) handleCommand(ctx context.Context, chatID int64, text string, session *UserSession) {
	command := strings.Fields(text)[0]
	// /start@my_bot в группах
	command, _, _ = strings.Cut(command, "@")

	switch command {
	case "/start":
		h.handleStartCommand(ctx, chatID, session)
	case "/help":
		h.handleHelpCommand(chatID)
	case "/status":
		h.handleStatusCommand(chatID, session)
	case "/retry":
		h.handleRetryCommand(ctx, chatID, session)
	case "/story":
		h.handleStoryCommand(ctx, chatID, session)
	case "/voice":
		h.handleVoiceCommand(ctx, chatID, session)
	case "/restart":
		h.handleRestartCommand(ctx, chatID, session)
	case "/stop":
		h.handleStopCommand(chatID, session)
	default:
		h.bot.SendMessage(chatID, "Неизвестная команда. Используйте /help для получения списка команд.")
	}
}

// handleStartCommand обрабатывает команду /start
func (h *Handler) handleStartCommand(ctx context.Context, chatID int64, session *UserSession) {
	switch session.State {
	case StateInterview:
		h.bot.SendMessage(chatID, "У вас уже идет интервью. Используйте /status для проверки прогресса или /restart для начала нового интервью.")
		return
	case StateCompleted:
		h.initializeInterview(ctx, chatID, session)
		return
	}

	session.State = StateAwaitingToken
	h.bot.SendMessage(chatID, "🔐 *Семейная история*\n\nВведите токен доступа, чтобы начать.")
}

func (h *Handler) handleToken(ctx context.Context, chatID int64, token string, session *UserSession) {
	if err := h.svc.Gate.Verify(token); err != nil {
		h.logger.Warn(ctx, "Неверный токен от пользователя %d", session.UserID)
		h.bot.SendMessage(chatID, interview.UserMessage(err))
		return
	}

	h.bot.SendMessage(chatID, "✅ Доступ разрешён.")
	h.initializeInterview(ctx, chatID, session)
}

// handleHelpCommand обрабатывает команду /help
func (h *Handler) handleHelpCommand(chatID int64) {
	cfg := h.svc.Store.Current()

	helpText := `📖 *Бот «Семейная история»*

*Команды:*
/start - Начать интервью
/status - Проверить прогресс
/retry - Повторить последний шаг, если сервис не ответил
/story - Прислать готовую историю ещё раз
/voice - Озвучить историю заново
/restart - Начать заново
/stop - Остановить интервью
/help - Показать это сообщение

*Как это работает:*
1. Введите токен доступа
2. Ответьте на %d %s о семейных рецептах и традициях
3. Отвечать можно %s
4. Получите тёплую историю текстом и аудио`

	h.bot.SendFormattedMessage(chatID, helpText,
		cfg.GetQuestionCount(), prompts.QuestionNoun(cfg.GetQuestionCount()), channelsDescription(cfg))
}

// handleStatusCommand показывает статус интервью
func (h *Handler) handleStatusCommand(chatID int64, session *UserSession) {
	switch session.State {
	case StateIdle:
		h.bot.SendMessage(chatID, "Интервью не начато. Используйте /start для начала.")
	case StateAwaitingToken:
		h.bot.SendMessage(chatID, "🔐 Ожидаю токен доступа.")
	case StateInterview, StateCompleted:
		s := session.Controller.Session()
		h.bot.SendFormattedMessage(chatID, "📊 *Прогресс интервью*\n\n"+
			"🆔 ID: `%s`\n"+
			"❓ Ответов: %d/%d\n"+
			"⏰ Состояние: %s",
			s.ID, s.CurrentIndex(), len(s.Questions), statusDescription(s.Status))
	}
}

// handleRetryCommand повторяет отрисовку: неудавшиеся вызовы выполнятся снова
func (h *Handler) handleRetryCommand(ctx context.Context, chatID int64, session *UserSession) {
	if session.State != StateInterview {
		h.bot.SendMessage(chatID, "Повторять нечего. Используйте /start.")
		return
	}
	h.render(ctx, chatID, session)
}

func (h *Handler) handleStoryCommand(ctx context.Context, chatID int64, session *UserSession) {
	if session.State != StateCompleted {
		h.bot.SendMessage(chatID, "❌ История доступна только после завершения интервью.")
		return
	}
	h.render(ctx, chatID, session)
}

// handleVoiceCommand заново озвучивает готовую историю
func (h *Handler) handleVoiceCommand(ctx context.Context, chatID int64, session *UserSession) {
	if session.State != StateCompleted {
		h.bot.SendMessage(chatID, "❌ Озвучить можно только готовую историю.")
		return
	}

	h.bot.SendMessage(chatID, "🎙 Озвучиваю историю заново...")
	audio, err := session.Controller.RegenerateAudio(ctx)
	if err != nil {
		h.logger.Warn(ctx, "Повторная озвучка не удалась: %v", err)
		h.bot.SendMessage(chatID, interview.UserMessage(err))
		return
	}

	name := session.Controller.Config().Artifacts.AudioName
	if err := h.bot.SendAudio(chatID, name, audio, "🎧 Аудиоверсия"); err != nil {
		h.logger.Error(ctx, "Не удалось отправить аудио: %v", err)
	}
}

// handleRestartCommand перезапускает интервью
func (h *Handler) handleRestartCommand(ctx context.Context, chatID int64, session *UserSession) {
	if session.State == StateIdle || session.State == StateAwaitingToken {
		h.handleStartCommand(ctx, chatID, session)
		return
	}
	h.bot.SendMessage(chatID, "🔄 Начинаем заново.")
	h.initializeInterview(ctx, chatID, session)
}

// handleStopCommand останавливает интервью
func (h *Handler) handleStopCommand(chatID int64, session *UserSession) {
	if session.State == StateIdle {
		h.bot.SendMessage(chatID, "Интервью не запущено.")
		return
	}

	h.resetSession(session)
	h.bot.SendMessage(chatID, "🛑 Интервью остановлено.")
}

// initializeInterview создает новую сессию на текущей конфигурации
func (h *Handler) initializeInterview(ctx context.Context, chatID int64, session *UserSession) {
	h.resetSession(session)

	cfg := h.svc.Store.Current()
	session.Controller = h.svc.NewInterview(cfg)
	session.State = StateInterview
	h.svc.Metrics.IncrementSessionsStarted()

	h.logger.Info(ctx, "Новое интервью %s для пользователя %d", session.Controller.Session().ID, session.UserID)

	h.bot.SendFormattedMessage(chatID, "🎯 *Начинаем интервью!*\n\n"+
		"Я задам %d %s о семейных рецептах, традициях и воспоминаниях.\n"+
		"Отвечать можно %s.\n\n⏳ Придумываю вопросы...",
		cfg.GetQuestionCount(), prompts.QuestionNoun(cfg.GetQuestionCount()), channelsDescription(cfg))

	h.render(ctx, chatID, session)
}

// handleAnswer принимает ответ текстом или файлом
func (h *Handler) handleAnswer(ctx context.Context, chatID int64, msg *Message, session *UserSession) {
	if session.Controller.Session().Status != interview.StatusAsking {
		h.bot.SendMessage(chatID, "⏳ Сейчас не время для ответов. Используйте /retry, если что-то пошло не так.")
		return
	}

	answer, err := h.readAnswer(ctx, msg)
	if err != nil {
		h.logger.Warn(ctx, "Не удалось получить файл: %v", err)
		h.bot.SendMessage(chatID, "❌ Не удалось скачать файл. Попробуйте ещё раз или напишите ответ текстом.")
		return
	}

	if answer.Text != "" {
		if err := h.validateUserInput(answer.Text); err != nil {
			h.svc.Metrics.IncrementAnswers(false)
			h.bot.SendMessage(chatID, "❌ "+err.Error())
			return
		}
	}

	view, err := session.Controller.Submit(ctx, answer)
	if err != nil {
		h.svc.Metrics.IncrementAnswers(false)
		h.bot.SendMessage(chatID, interview.UserMessage(err))
		return
	}
	h.svc.Metrics.IncrementAnswers(true)

	if view.Transcribed != "" {
		h.bot.SendPlainMessage(chatID, "🎙 Распознано: "+view.Transcribed)
	}

	if view.Status == interview.StatusGenerating {
		h.bot.SendMessage(chatID, "✍️ Спасибо! Пишу вашу семейную историю...")
	}
	h.render(ctx, chatID, session)
}

func (h *Handler) readAnswer(ctx context.Context, msg *Message) (interview.Answer, error) {
	var fileID, name string
	switch {
	case msg.Voice != nil:
		fileID = msg.Voice.FileID
	case msg.Audio != nil:
		fileID, name = msg.Audio.FileID, msg.Audio.FileName
	case msg.Document != nil:
		fileID, name = msg.Document.FileID, msg.Document.FileName
	default:
		return interview.Answer{Text: msg.Text}, nil
	}

	file, err := h.bot.GetFile(ctx, fileID)
	if err != nil {
		return interview.Answer{}, err
	}
	if name == "" {
		// у голосовых сообщений имени нет, расширение берем из file_path (voice/file_1.oga)
		name = path.Base(file.FilePath)
	}

	data, err := h.bot.DownloadFile(ctx, file.FilePath)
	if err != nil {
		return interview.Answer{}, err
	}

	return interview.Answer{Text: msg.Caption, Audio: data, Filename: name}, nil
}

// render выполняет текущий шаг сценария и показывает результат
func (h *Handler) render(ctx context.Context, chatID int64, session *UserSession) {
	view, err := session.Controller.Render(ctx)
	if err != nil {
		h.logger.Warn(ctx, "Шаг %s не выполнен: %v", view.Status, err)
		h.bot.SendMessage(chatID, interview.UserMessage(err)+"\n\nИспользуйте /retry, чтобы попробовать снова.")
		return
	}

	switch view.Status {
	case interview.StatusAsking:
		h.bot.SendFormattedMessage(chatID, "❓ *Вопрос %d/%d:*", view.Index+1, view.Total)
		h.bot.SendPlainMessage(chatID, view.Question)
	case interview.StatusDone:
		h.deliver(ctx, chatID, session, view.Deliverables)
	}
}

func (h *Handler) deliver(ctx context.Context, chatID int64, session *UserSession, d *interview.Deliverables) {
	if d == nil {
		return
	}
	firstDelivery := session.State != StateCompleted
	session.State = StateCompleted

	h.bot.SendMessage(chatID, "📖 *Ваша семейная история:*")
	for _, part := range splitMessage(d.Story, maxMessageRunes) {
		h.bot.SendPlainMessage(chatID, part)
	}

	artifacts := []string{d.Text.Name}
	if err := h.bot.SendDocument(chatID, d.Text.Name, d.Text.Data, "📄 Текст истории"); err != nil {
		h.logger.Error(ctx, "Не удалось отправить текст: %v", err)
	}
	if d.Audio != nil {
		artifacts = append(artifacts, d.Audio.Name)
		if err := h.bot.SendAudio(chatID, d.Audio.Name, d.Audio.Data, "🎧 Аудиоверсия"); err != nil {
			h.logger.Error(ctx, "Не удалось отправить аудио: %v", err)
		}
	}
	if d.Docx != nil {
		artifacts = append(artifacts, d.Docx.Name)
		if err := h.bot.SendDocument(chatID, d.Docx.Name, d.Docx.Data, "📝 Документ Word"); err != nil {
			h.logger.Error(ctx, "Не удалось отправить документ: %v", err)
		}
	}
	if d.Image != nil {
		if err := h.bot.SendPhoto(chatID, "story.webp", d.Image.Data, d.Image.URL, "🎨 Изображение по истории"); err != nil {
			h.logger.Error(ctx, "Не удалось отправить картинку: %v", err)
		}
	}
	for _, w := range d.Warnings {
		h.bot.SendMessage(chatID, interview.UserMessage(w))
	}

	if !firstDelivery {
		return
	}
	h.svc.Metrics.IncrementStoriesGenerated()

	if !session.Archived && h.svc.Archive.Enabled() {
		s := session.Controller.Session()
		path, err := h.svc.Archive.SaveResult(storage.NewResult(s, session.Controller.Config().Interview.Language, artifacts))
		if err != nil {
			h.logger.Error(ctx, "Ошибка сохранения результата: %v", err)
		} else {
			session.Archived = true
			h.logger.Info(ctx, "💾 История сохранена: %s", path)
		}
	}

	h.bot.SendMessage(chatID, "🎉 Готово! /restart — новое интервью.")
}

// Улучшенная валидация пользовательского ввода
func (h *Handler) validateUserInput(text string) error {
	if utf8.RuneCountInString(text) > maxMessageRunes {
		return fmt.Errorf("сообщение слишком длинное (максимум %d символов)", maxMessageRunes)
	}

	// Проверка на спам/повторяющиеся символы
	runes := []rune(text)
	if len(runes) > 10 && strings.Count(text, string(runes[0])) > len(runes)*8/10 {
		return fmt.Errorf("сообщение содержит слишком много повторяющихся символов")
	}

	return nil
}

// Вспомогательные методы
func (h *Handler) getOrCreateSession(userID int64) *UserSession {
	h.sessionsMutex.Lock()
	defer h.sessionsMutex.Unlock()

	if session, exists := h.sessions[userID]; exists {
		return session
	}

	session := &UserSession{
		UserID:       userID,
		State:        StateIdle,
		LastActivity: time.Now(),
	}
	h.sessions[userID] = session
	return session
}

// lockSession возвращает захваченную сессию пользователя.
// Если очистка успела удалить сессию до захвата, берем новую из карты.
func (h *Handler) lockSession(userID int64) *UserSession {
	for {
		session := h.getOrCreateSession(userID)
		session.mu.Lock()
		if !session.removed {
			return session
		}
		session.mu.Unlock()
	}
}

func (h *Handler) resetSession(session *UserSession) {
	session.State = StateIdle
	session.Controller = nil
	session.Archived = false
	session.LastActivity = time.Now()
}

func statusDescription(status interview.Status) string {
	switch status {
	case interview.StatusAwaitingQuestions:
		return "Подготовка вопросов"
	case interview.StatusAsking:
		return "Ожидание ответа"
	case interview.StatusGenerating:
		return "Пишу историю"
	case interview.StatusDone:
		return "Завершено"
	default:
		return "Неизвестно"
	}
}

func channelsDescription(cfg *config.Config) string {
	text := cfg.HasChannel(config.ChannelText)
	audio := cfg.HasChannel(config.ChannelAudio)
	switch {
	case text && audio:
		return "текстом или голосом (" + strings.Join(cfg.Interview.AudioFormats, ", ") + ")"
	case audio:
		return "только голосом (" + strings.Join(cfg.Interview.AudioFormats, ", ") + ")"
	default:
		return "текстом"
	}
}

// splitMessage режет текст по абзацам так, чтобы куски влезали в сообщение
func splitMessage(text string, limit int) []string {
	var (
		parts   []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, paragraph := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(paragraph) > limit {
			flush()
			runes := []rune(paragraph)
			parts = append(parts, string(runes[:limit]))
			paragraph = string(runes[limit:])
		}

		sep := 0
		if current.Len() > 0 {
			sep = 1
		}
		if utf8.RuneCountInString(current.String())+sep+utf8.RuneCountInString(paragraph) > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			current.WriteByte('\n')
		}
		current.WriteString(paragraph)
	}
	flush()

	return parts
}
