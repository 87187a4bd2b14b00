package interview

import (
	"time"

	"github.com/google/uuid"
)

// Status — состояние сессии интервью
type Status string

const (
	StatusAwaitingQuestions Status = "awaiting_questions"
	StatusAsking            Status = "asking"
	StatusGenerating        Status = "generating"
	StatusDone              Status = "done"
)

// QA — вопрос и ответ
type QA struct {
	Question string
	Answer   string
}

// Image — результат генерации картинки: байты или ссылка
type Image struct {
	Data        []byte
	URL         string
	ContentType string
}

// Session — состояние одного интервью.
// len(Answers) всегда равен текущему индексу вопроса.
type Session struct {
	ID          string
	Status      Status
	Questions   []string
	Answers     []string
	Story       string
	Audio       []byte
	Image       *Image
	CreatedAt   time.Time
	CompletedAt time.Time

	imageTried bool
}

// NewSession создает сессию в начальном состоянии
func NewSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Status:    StatusAwaitingQuestions,
		CreatedAt: now,
	}
}

// CurrentIndex возвращает номер текущего вопроса (с нуля)
func (s *Session) CurrentIndex() int {
	return len(s.Answers)
}

// CurrentQuestion возвращает вопрос, ожидающий ответа
func (s *Session) CurrentQuestion() (string, bool) {
	if s.Status != StatusAsking || s.CurrentIndex() >= len(s.Questions) {
		return "", false
	}
	return s.Questions[s.CurrentIndex()], true
}

// Pairs возвращает пары вопрос-ответ в порядке интервью
func (s *Session) Pairs() []QA {
	pairs := make([]QA, 0, len(s.Answers))
	for i, answer := range s.Answers {
		pairs = append(pairs, QA{Question: s.Questions[i], Answer: answer})
	}
	return pairs
}

// Snapshot возвращает копию сессии, которую безопасно отдавать наружу
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Questions = append([]string(nil), s.Questions...)
	cp.Answers = append([]string(nil), s.Answers...)
	cp.Audio = append([]byte(nil), s.Audio...)
	if s.Image != nil {
		img := *s.Image
		cp.Image = &img
	}
	return cp
}
