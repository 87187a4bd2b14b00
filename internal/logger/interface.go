package logger

import "context"

// Logger — уровневый логгер, общий для ботов и адаптеров внешних сервисов
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})

	// Named возвращает логгер с префиксом компонента, например "[tts]"
	Named(component string) Logger
}
