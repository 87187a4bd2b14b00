package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"family-story-bot/internal/interview"
)

const (
	filePrefix = "story_"
	fileExt    = ".json"
)

// Archive складывает готовые истории в JSON-файлы.
// Пустой Dir отключает архив.
type Archive struct {
	Dir string
}

func NewArchive(dir string) *Archive {
	return &Archive{Dir: dir}
}

// Enabled сообщает, включен ли архив
func (a *Archive) Enabled() bool {
	return a != nil && a.Dir != ""
}

// NewResult собирает архивную запись из завершенной сессии
func NewResult(s interview.Session, language string, artifacts []string) *StoryResult {
	result := &StoryResult{
		SessionID:   s.ID,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
		Language:    language,
		Story:       s.Story,
		Artifacts:   artifacts,
	}
	for _, qa := range s.Pairs() {
		result.Questions = append(result.Questions, QA{Question: qa.Question, Answer: qa.Answer})
	}
	if s.Image != nil {
		result.ImageURL = s.Image.URL
	}
	return result
}

// SaveResult сохраняет результат интервью в JSON файл и возвращает путь
func (a *Archive) SaveResult(result *StoryResult) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if result.SessionID == "" {
		return "", fmt.Errorf("пустой идентификатор сессии")
	}

	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории %s: %w", a.Dir, err)
	}

	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации результата: %w", err)
	}

	path := a.path(result.SessionID)
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}

	return path, nil
}

// LoadResult загружает результат интервью из JSON файла
func (a *Archive) LoadResult(sessionID string) (*StoryResult, error) {
	path := a.path(sessionID)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	var result StoryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("ошибка десериализации JSON: %w", err)
	}

	return &result, nil
}

// ListResults возвращает идентификаторы сохраненных историй
func (a *Archive) ListResults() ([]string, error) {
	if !a.Enabled() {
		return []string{}, nil
	}

	entries, err := os.ReadDir(a.Dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", a.Dir, err)
	}

	results := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != fileExt {
			continue
		}
		results = append(results, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt))
	}
	sort.Strings(results)

	return results, nil
}

func (a *Archive) path(sessionID string) string {
	return filepath.Join(a.Dir, filePrefix+filepath.Base(sessionID)+fileExt)
}
