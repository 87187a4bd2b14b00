package storage

import "time"

// StoryResult — архивная запись завершенного интервью
type StoryResult struct {
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
	Language    string    `json:"language"`
	Questions   []QA      `json:"questions_and_answers"`
	Story       string    `json:"story"`
	Artifacts   []string  `json:"artifacts"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// QA представляет один вопрос и ответ
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
