package interview

import (
	"context"
	"errors"
	"fmt"
)

// Kind — вид ошибки сценария интервью
type Kind string

const (
	KindAuth                Kind = "auth_failure"
	KindGenerationShortfall Kind = "generation_shortfall"
	KindGeneration          Kind = "generation_error"
	KindTranscription       Kind = "transcription_error"
	KindSynthesis           Kind = "synthesis_error"
	KindValidation          Kind = "validation_error"
	KindImage               Kind = "image_error"
	KindState               Kind = "invalid_state"
)

// Error — ошибка шага интервью. Состояние сессии при такой ошибке не меняется.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает вид ошибки или пустую строку для посторонних ошибок
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind проверяет вид ошибки
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage превращает ошибку в короткое сообщение для пользователя
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return "❌ Что-то пошло не так. Попробуйте ещё раз."
	}

	timeout := errors.Is(err, context.DeadlineExceeded)

	switch e.Kind {
	case KindAuth:
		return "❌ Неверный токен. Доступ запрещён."
	case KindValidation:
		return "⚠️ " + e.Message
	case KindGenerationShortfall:
		return "❌ Не удалось придумать вопросы: " + e.Message + ". Попробуйте ещё раз."
	case KindGeneration:
		if timeout {
			return "❌ Сервис генерации не ответил вовремя. Попробуйте ещё раз."
		}
		return "❌ Ошибка при генерации: " + e.Message + ". Попробуйте ещё раз."
	case KindTranscription:
		if timeout {
			return "❌ Распознавание заняло слишком много времени. Напишите ответ текстом или загрузите другой файл."
		}
		return "❌ Ошибка при распознавании. Напишите ответ текстом или загрузите другой файл."
	case KindSynthesis:
		return "⚠️ Не удалось озвучить историю, текст доступен для скачивания."
	case KindImage:
		return "⚠️ Не удалось сгенерировать изображение."
	case KindState:
		return "⚠️ " + e.Message
	default:
		return "❌ " + e.Message
	}
}
