package telegram

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"family-story-bot/internal/interview"
	"family-story-bot/internal/logger"
)

// Bot представляет Telegram бота
type Bot struct {
	token   string
	baseURL string
	fileURL string
	client  *http.Client
	logger  logger.Logger
}

// Update представляет обновление от Telegram
type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message представляет сообщение в Telegram
type Message struct {
	MessageID int       `json:"message_id"`
	From      *User     `json:"from,omitempty"`
	Chat      *Chat     `json:"chat"`
	Text      string    `json:"text,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Voice     *Voice    `json:"voice,omitempty"`
	Audio     *Audio    `json:"audio,omitempty"`
	Document  *Document `json:"document,omitempty"`
}

// User представляет пользователя Telegram
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Chat представляет чат в Telegram
type Chat struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Type      string `json:"type"`
}

// Voice — голосовое сообщение (ogg/opus)
type Voice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// Audio — аудиофайл, отправленный как музыка
type Audio struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// Document — произвольный файл
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// File — ответ getFile
type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// SendMessageRequest представляет запрос на отправку сообщения
type SendMessageRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// APIResponse — общий конверт ответов Bot API
type APIResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
}

// UserSession — состояние пользователя. mu сериализует все обращения к сессии,
// включая очистку неактивных.
type UserSession struct {
	mu sync.Mutex
	// removed выставляется очисткой под mu: сессия больше не лежит в карте
	removed bool

	UserID       int64
	ChatID       int64
	State        SessionState
	Controller   *interview.Controller
	Archived     bool
	LastActivity time.Time
}

// SessionState представляет состояние сессии
type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateAwaitingToken SessionState = "awaiting_token"
	StateInterview     SessionState = "interview"
	StateCompleted     SessionState = "completed"
)
