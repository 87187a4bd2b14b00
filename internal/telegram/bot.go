package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"family-story-bot/internal/logger"
)

const (
	defaultAPIURL = "https://api.telegram.org"
	pollTimeout   = 30
)

// New создает новый Telegram бот
func New(token string, log logger.Logger) *Bot {
	return NewWithAPI(token, defaultAPIURL, &http.Client{Timeout: (pollTimeout + 30) * time.Second}, log)
}

// NewWithAPI позволяет указать адрес Bot API и http.Client (локальный Bot API сервер, тесты)
func NewWithAPI(token, apiURL string, httpClient *http.Client, log logger.Logger) *Bot {
	apiURL = strings.TrimRight(apiURL, "/")
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		token:   token,
		baseURL: fmt.Sprintf("%s/bot%s", apiURL, token),
		fileURL: fmt.Sprintf("%s/file/bot%s", apiURL, token),
		client:  httpClient,
		logger:  log.Named("telegram"),
	}
}

// GetUpdates получает обновления от Telegram
func (b *Bot) GetUpdates(ctx context.Context, offset int) ([]Update, error) {
	endpoint := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=%d", b.baseURL, offset, pollTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса getUpdates: %w", err)
	}

	var updates []Update
	if err := b.do(req, &updates); err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}
	return updates, nil
}

// SendMessage отправляет сообщение в Markdown
func (b *Bot) SendMessage(chatID int64, text string) error {
	return b.sendMessage(chatID, text, "Markdown")
}

// SendPlainMessage отправляет текст без разметки (ответы модели, ввод пользователя)
func (b *Bot) SendPlainMessage(chatID int64, text string) error {
	return b.sendMessage(chatID, text, "")
}

// SendFormattedMessage отправляет форматированное сообщение
func (b *Bot) SendFormattedMessage(chatID int64, format string, args ...interface{}) error {
	text := fmt.Sprintf(format, args...)
	return b.SendMessage(chatID, text)
}

func (b *Bot) sendMessage(chatID int64, text, parseMode string) error {
	request := SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, b.baseURL+"/sendMessage", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := b.do(req, nil); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

// GetFile возвращает путь файла на серверах Telegram
func (b *Bot) GetFile(ctx context.Context, fileID string) (*File, error) {
	endpoint := fmt.Sprintf("%s/getFile?file_id=%s", b.baseURL, url.QueryEscape(fileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var file File
	if err := b.do(req, &file); err != nil {
		return nil, fmt.Errorf("getFile: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("getFile: пустой file_path")
	}
	return &file, nil
}

// DownloadFile скачивает файл по file_path из GetFile
func (b *Bot) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fileURL+"/"+filePath, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка скачивания файла: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ошибка скачивания файла: статус %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// SendDocument отправляет файл
func (b *Bot) SendDocument(chatID int64, name string, data []byte, caption string) error {
	return b.upload("sendDocument", "document", chatID, name, data, caption)
}

// SendAudio отправляет mp3 как аудиозапись
func (b *Bot) SendAudio(chatID int64, name string, data []byte, caption string) error {
	return b.upload("sendAudio", "audio", chatID, name, data, caption)
}

// SendPhoto отправляет картинку байтами или, если байтов нет, ссылкой
func (b *Bot) SendPhoto(chatID int64, name string, data []byte, photoURL, caption string) error {
	if len(data) > 0 {
		return b.upload("sendPhoto", "photo", chatID, name, data, caption)
	}

	form := url.Values{}
	form.Set("chat_id", fmt.Sprint(chatID))
	form.Set("photo", photoURL)
	if caption != "" {
		form.Set("caption", caption)
	}

	req, err := http.NewRequest(http.MethodPost, b.baseURL+"/sendPhoto", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if err := b.do(req, nil); err != nil {
		return fmt.Errorf("sendPhoto: %w", err)
	}
	return nil
}

func (b *Bot) upload(method, field string, chatID int64, name string, data []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", fmt.Sprint(chatID)); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}

	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, b.baseURL+"/"+method, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	if err := b.do(req, nil); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// do выполняет запрос к Bot API и раскладывает result в out
func (b *Bot) do(req *http.Request, out interface{}) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var response APIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("ошибка парсинга JSON: %w", err)
	}

	if !response.OK {
		return fmt.Errorf("Telegram API вернул ошибку %d: %s", response.ErrorCode, response.Description)
	}

	if out != nil && len(response.Result) > 0 {
		if err := json.Unmarshal(response.Result, out); err != nil {
			return fmt.Errorf("ошибка парсинга result: %w", err)
		}
	}
	return nil
}

// StartPolling запускает polling для получения обновлений до отмены контекста
func (b *Bot) StartPolling(ctx context.Context, handler func(Update)) error {
	offset := 0

	for {
		updates, err := b.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn(ctx, "Ошибка получения обновлений: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			go handler(update)
		}

		if len(updates) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}
