package prompts

import (
	"strconv"
	"strings"
)

// QuestionsPrompt подставляет число вопросов в шаблон промпта.
// Поддерживаются плейсхолдеры {count} и {noun} ("вопроса", "вопросов").
func QuestionsPrompt(template string, count int) string {
	r := strings.NewReplacer(
		"{count}", strconv.Itoa(count),
		"{noun}", QuestionNoun(count),
	)
	return r.Replace(template)
}

// QuestionNoun возвращает слово "вопрос" в нужной форме для числа
func QuestionNoun(count int) string {
	n := count % 100
	if n < 0 {
		n = -n
	}
	if n >= 11 && n <= 14 {
		return "вопросов"
	}
	switch n % 10 {
	case 1:
		return "вопрос"
	case 2, 3, 4:
		return "вопроса"
	default:
		return "вопросов"
	}
}

// StoryPrompt собирает пользовательский промпт для истории: шаблон и диалог
func StoryPrompt(template, transcript string) string {
	var prompt strings.Builder

	prompt.WriteString(strings.TrimSpace(template))
	prompt.WriteString("\n\n")
	prompt.WriteString(transcript)

	return prompt.String()
}
