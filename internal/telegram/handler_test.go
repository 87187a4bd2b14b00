package telegram

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-story-bot/internal/config"
	"family-story-bot/internal/interview"
	"family-story-bot/internal/metrics"
	"family-story-bot/internal/storage"
)

type handlerFixture struct {
	api     *fakeAPI
	handler *Handler
	text    *scriptedText
	stt     *recordingTranscriber
	tts     *countingSynth
	metrics *metrics.Metrics
	archive *storage.Archive
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	cfg := config.Default()
	cfg.Interview.AudioFormats = append(cfg.Interview.AudioFormats, "oga", "ogg")

	f := &handlerFixture{
		api:     newFakeAPI(t),
		text:    &scriptedText{},
		stt:     &recordingTranscriber{},
		tts:     &countingSynth{},
		metrics: metrics.NewMetrics(),
		archive: storage.NewArchive(t.TempDir()),
	}

	bot := NewWithAPI(testToken, f.api.srv.URL, &http.Client{Timeout: 5 * time.Second}, nil)
	f.handler = NewHandler(bot, Services{
		Store: config.NewStore(cfg),
		NewInterview: func(cfg *config.Config) *interview.Controller {
			return interview.NewController(cfg, interview.Deps{
				Text:        f.text,
				Transcriber: f.stt,
				Synthesizer: f.tts,
				OnCall:      f.metrics.ObserveCall,
			})
		},
		Gate:    interview.NewGate("s3cret"),
		Archive: f.archive,
		Metrics: f.metrics,
	})
	return f
}

func textUpdate(userID int64, text string) Update {
	return Update{Message: &Message{
		From: &User{ID: userID},
		Chat: &Chat{ID: userID, Type: "private"},
		Text: text,
	}}
}

func (f *handlerFixture) send(userID int64, texts ...string) {
	for _, text := range texts {
		f.handler.HandleUpdate(context.Background(), textUpdate(userID, text))
	}
}

func TestHandlerFullInterview(t *testing.T) {
	f := newHandlerFixture(t)

	f.send(1, "/start", "wrong")
	assert.Contains(t, f.api.texts(), "Неверный токен")
	assert.Equal(t, 0, f.text.calls)

	f.send(1, "s3cret")
	assert.Contains(t, f.api.texts(), "Что готовила бабушка?")

	f.send(1, "Бешбармак", "Наурыз-коже", "Мама")

	out := f.api.texts()
	assert.Contains(t, out, "Кто учил вас готовить?")
	// история уходит без разметки, звездочки сохраняются
	assert.Contains(t, out, "Жили-были бабушка и её *бешбармак*.")
	assert.Equal(t, 2, f.text.calls)

	docs := f.api.byMethod("sendDocument")
	require.Len(t, docs, 1)
	assert.True(t, strings.HasPrefix(docs[0].FileName, "family_story_"))
	assert.True(t, strings.HasSuffix(docs[0].FileName, ".txt"))
	assert.Equal(t, "Жили-были бабушка и её *бешбармак*.", string(docs[0].Data))

	audio := f.api.byMethod("sendAudio")
	require.Len(t, audio, 1)
	assert.Equal(t, "family_story.mp3", audio[0].FileName)
	assert.Equal(t, "ID3ru", string(audio[0].Data))

	ids, err := f.archive.ListResults()
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	s := f.metrics.GetSnapshot()
	assert.Equal(t, int64(1), s.SessionsStarted)
	assert.Equal(t, int64(3), s.AnswersAccepted)
	assert.Equal(t, int64(1), s.StoriesGenerated)
	assert.Equal(t, int64(3), s.APICallsTotal)

	// повторная выдача без новых удаленных вызовов
	f.api.reset()
	f.send(1, "/story")
	assert.Len(t, f.api.byMethod("sendAudio"), 1)
	assert.Equal(t, 2, f.text.calls)
	assert.Equal(t, 1, f.tts.calls)
	assert.Equal(t, int64(1), f.metrics.GetSnapshot().StoriesGenerated)
}

func TestHandlerVoiceCommandResynthesizes(t *testing.T) {
	f := newHandlerFixture(t)

	f.send(2, "/voice")
	assert.Contains(t, f.api.texts(), "только готовую историю")
	assert.Equal(t, 0, f.tts.calls)

	f.send(2, "/start", "s3cret", "Плов", "Баурсаки", "Бабушка")
	require.Equal(t, 1, f.tts.calls)

	f.api.reset()
	f.send(2, "/voice")

	assert.Equal(t, 2, f.tts.calls)
	audio := f.api.byMethod("sendAudio")
	require.Len(t, audio, 1)
	assert.Equal(t, "family_story.mp3", audio[0].FileName)
	assert.Equal(t, "ID3ru", string(audio[0].Data))
	assert.Equal(t, 2, f.text.calls)
}

func TestHandlerVoiceAnswer(t *testing.T) {
	f := newHandlerFixture(t)
	f.api.files["voice/v1.oga"] = []byte("ogg")

	f.send(7, "/start", "s3cret")
	f.handler.HandleUpdate(context.Background(), Update{Message: &Message{
		From:  &User{ID: 7},
		Chat:  &Chat{ID: 7},
		Voice: &Voice{FileID: "v1", Duration: 3},
	}})

	assert.Equal(t, []string{"v1.oga"}, f.stt.filenames)
	assert.Contains(t, f.api.texts(), "Распознано: Баурсаки ogg")
	assert.Contains(t, f.api.texts(), "Вопрос 2/3")
}

func TestHandlerRejectsUnsupportedDocument(t *testing.T) {
	f := newHandlerFixture(t)
	f.api.files["voice/d1.oga"] = []byte("pdf")

	f.send(3, "/start", "s3cret")
	f.handler.HandleUpdate(context.Background(), Update{Message: &Message{
		From:     &User{ID: 3},
		Chat:     &Chat{ID: 3},
		Document: &Document{FileID: "d1", FileName: "recipe.pdf"},
	}})

	assert.Empty(t, f.stt.filenames)
	assert.Contains(t, f.api.texts(), "Формат файла не поддерживается")
	assert.Equal(t, int64(1), f.metrics.GetSnapshot().AnswersRejected)
}

func TestHandlerEmptyAnswerDoesNotAdvance(t *testing.T) {
	f := newHandlerFixture(t)

	f.send(5, "/start", "s3cret")
	f.api.reset()
	f.handler.HandleUpdate(context.Background(), Update{Message: &Message{
		From: &User{ID: 5},
		Chat: &Chat{ID: 5},
		Text: "   ",
	}})

	assert.Contains(t, f.api.texts(), "Пожалуйста, дайте ответ.")
	assert.NotContains(t, f.api.texts(), "Вопрос 2/3")
}

func TestHandlerStopAndStatus(t *testing.T) {
	f := newHandlerFixture(t)

	f.send(9, "/status")
	assert.Contains(t, f.api.texts(), "Интервью не начато")

	f.send(9, "/start", "s3cret", "/status")
	assert.Contains(t, f.api.texts(), "Ответов: 0/3")

	f.send(9, "/stop")
	assert.Contains(t, f.api.texts(), "Интервью остановлено")

	f.api.reset()
	f.send(9, "ответ после остановки")
	assert.Contains(t, f.api.texts(), "/start")
	assert.Equal(t, 1, f.text.calls)
}

func TestHandlerSessionsAreIsolated(t *testing.T) {
	f := newHandlerFixture(t)

	f.send(1, "/start", "s3cret", "Плов")
	f.send(2, "/start", "s3cret")

	f.handler.sessionsMutex.RLock()
	one := f.handler.sessions[1].Controller.Session()
	two := f.handler.sessions[2].Controller.Session()
	f.handler.sessionsMutex.RUnlock()

	assert.NotEqual(t, one.ID, two.ID)
	assert.Equal(t, 1, one.CurrentIndex())
	assert.Equal(t, 0, two.CurrentIndex())
}

func TestCleanupInactiveSessions(t *testing.T) {
	f := newHandlerFixture(t)
	f.send(1, "/help")
	f.send(2, "/help")

	f.handler.sessions[1].LastActivity = time.Now().Add(-25 * time.Hour)

	removed := f.handler.cleanupInactiveSessions(time.Now())

	assert.Equal(t, 1, removed)
	assert.NotContains(t, f.handler.sessions, int64(1))
	assert.Contains(t, f.handler.sessions, int64(2))
}

func TestCleanupRunsAlongsideUpdates(t *testing.T) {
	f := newHandlerFixture(t)
	later := time.Now().Add(48 * time.Hour)

	var wg sync.WaitGroup
	for uid := int64(1); uid <= 8; uid++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				f.handler.HandleUpdate(context.Background(), textUpdate(uid, "/status"))
			}
		}(uid)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			f.handler.cleanupInactiveSessions(later)
		}
	}()
	wg.Wait()

	f.handler.cleanupInactiveSessions(later)

	f.handler.sessionsMutex.RLock()
	left := len(f.handler.sessions)
	f.handler.sessionsMutex.RUnlock()

	assert.Zero(t, left)
	assert.Len(t, f.api.byMethod("sendMessage"), 40)
}

func TestLockSessionSkipsRemovedSession(t *testing.T) {
	f := newHandlerFixture(t)

	old := f.handler.getOrCreateSession(4)
	old.LastActivity = time.Now().Add(-25 * time.Hour)
	require.Equal(t, 1, f.handler.cleanupInactiveSessions(time.Now()))

	fresh := f.handler.lockSession(4)
	defer fresh.mu.Unlock()

	assert.NotSame(t, old, fresh)
	assert.True(t, old.removed)
	assert.False(t, fresh.removed)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	assert.True(t, rl.IsAllowed(1))
	assert.True(t, rl.IsAllowed(1))
	assert.False(t, rl.IsAllowed(1))
	assert.True(t, rl.IsAllowed(2))
}

func TestValidateUserInput(t *testing.T) {
	h := &Handler{}

	assert.NoError(t, h.validateUserInput("Бабушка пекла баурсаки"))
	assert.Error(t, h.validateUserInput(strings.Repeat("а", maxMessageRunes+1)))
	assert.Error(t, h.validateUserInput(strings.Repeat("ы", 20)))
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits", "раз\nдва", 10, []string{"раз\nдва"}},
		{"by paragraphs", "раз\nдва\nтри", 7, []string{"раз\nдва", "три"}},
		{"long paragraph", "абвгдеж", 3, []string{"абв", "где", "ж"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitMessage(tt.text, tt.limit))
		})
	}
}
