package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"family-story-bot/internal/logger"
)

// Store хранит актуальную конфигурацию интервью.
// Новые сессии берут снимок Current(); уже идущие сессии его не видят.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore создает хранилище с начальной конфигурацией
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Current возвращает текущий снимок конфигурации
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Replace подменяет конфигурацию
func (s *Store) Replace(cfg *Config) {
	s.current.Store(cfg)
}

// Watcher перечитывает YAML интервью при изменении файла
type Watcher struct {
	path    string
	store   *Store
	logger  logger.Logger
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// Watch начинает следить за файлом конфигурации.
// Следим за каталогом: редакторы часто сохраняют файл через rename.
func Watch(ctx context.Context, path string, store *Store, log logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("resolve path %s: %w", path, err)
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	w := &Watcher{
		path:    abs,
		store:   store,
		logger:  log.Named("config"),
		watcher: fw,
	}

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Info(ctx, "Слежу за изменениями %s", abs)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(ctx, "Ошибка наблюдения за конфигурацией: %v", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn(ctx, "Конфигурация не прочитана: %v", err)
		return
	}
	// редактор мог только обрезать файл, содержимое придет следующим событием
	if len(bytes.TrimSpace(data)) == 0 {
		w.logger.Debug(ctx, "Файл %s пуст, жду содержимое", w.path)
		return
	}

	cfg, err := Parse(data)
	if err != nil {
		// битый файл не должен ломать работающий бот
		w.logger.Warn(ctx, "Конфигурация не применена: %v", err)
		return
	}

	w.store.Replace(cfg)
	w.logger.Info(ctx, "Конфигурация перечитана: %d вопросов, каналы %v",
		cfg.GetQuestionCount(), cfg.Interview.InputChannels)
}

// Stop закрывает наблюдатель и дожидается завершения цикла
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
