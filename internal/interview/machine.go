package interview

import (
	"fmt"
	"strings"
)

// EventKind — тип события для автомата интервью
type EventKind int

const (
	// EventRender — повторная отрисовка без ввода пользователя
	EventRender EventKind = iota + 1
	EventQuestionsReady
	EventAnswer
	EventStoryReady
)

func (k EventKind) String() string {
	switch k {
	case EventRender:
		return "render"
	case EventQuestionsReady:
		return "questions_ready"
	case EventAnswer:
		return "answer"
	case EventStoryReady:
		return "story_ready"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event — входное событие автомата
type Event struct {
	Kind      EventKind
	Questions []string
	Text      string
}

// Effect — побочное действие, которое должен выполнить контроллер
type Effect int

const (
	EffectGenerateQuestions Effect = iota + 1
	EffectAsk
	EffectGenerateStory
	EffectDeliver
)

func (e Effect) String() string {
	switch e {
	case EffectGenerateQuestions:
		return "generate_questions"
	case EffectAsk:
		return "ask"
	case EffectGenerateStory:
		return "generate_story"
	case EffectDeliver:
		return "deliver"
	default:
		return fmt.Sprintf("effect(%d)", int(e))
	}
}

// Dispatch вычисляет следующее состояние и эффекты. Сессию не меняет.
// Эффекты с удаленными вызовами выдаются только если результат еще не получен.
func Dispatch(s *Session, ev Event) (Status, []Effect, error) {
	switch ev.Kind {
	case EventRender:
		return s.Status, renderEffects(s), nil

	case EventQuestionsReady:
		if s.Status != StatusAwaitingQuestions || len(s.Questions) > 0 {
			return s.Status, nil, invalidTransition(s.Status, ev.Kind)
		}
		if len(ev.Questions) == 0 {
			return s.Status, nil, newError(KindGenerationShortfall, "список вопросов пуст", nil)
		}
		return StatusAsking, []Effect{EffectAsk}, nil

	case EventAnswer:
		if s.Status != StatusAsking {
			return s.Status, nil, invalidTransition(s.Status, ev.Kind)
		}
		if strings.TrimSpace(ev.Text) == "" {
			return s.Status, nil, newError(KindValidation, "Пожалуйста, дайте ответ.", nil)
		}
		if s.CurrentIndex()+1 >= len(s.Questions) {
			return StatusGenerating, []Effect{EffectGenerateStory}, nil
		}
		return StatusAsking, []Effect{EffectAsk}, nil

	case EventStoryReady:
		if s.Status != StatusGenerating || s.Story != "" {
			return s.Status, nil, invalidTransition(s.Status, ev.Kind)
		}
		if strings.TrimSpace(ev.Text) == "" {
			return s.Status, nil, newError(KindGeneration, "получена пустая история", nil)
		}
		return StatusDone, []Effect{EffectDeliver}, nil
	}

	return s.Status, nil, invalidTransition(s.Status, ev.Kind)
}

func renderEffects(s *Session) []Effect {
	switch s.Status {
	case StatusAwaitingQuestions:
		if len(s.Questions) == 0 {
			return []Effect{EffectGenerateQuestions}
		}
	case StatusAsking:
		return []Effect{EffectAsk}
	case StatusGenerating:
		if s.Story == "" {
			return []Effect{EffectGenerateStory}
		}
	case StatusDone:
		return []Effect{EffectDeliver}
	}
	return nil
}

// apply применяет уже проверенное событие к сессии
func apply(s *Session, ev Event, next Status) {
	switch ev.Kind {
	case EventQuestionsReady:
		s.Questions = append([]string(nil), ev.Questions...)
	case EventAnswer:
		s.Answers = append(s.Answers, strings.TrimSpace(ev.Text))
	case EventStoryReady:
		s.Story = strings.TrimSpace(ev.Text)
	}
	s.Status = next
}

func invalidTransition(from Status, kind EventKind) error {
	return newError(KindState, fmt.Sprintf("событие %s недопустимо в состоянии %s", kind, from), nil)
}
