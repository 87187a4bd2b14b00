package interview

import (
	"fmt"
	"strings"
)

// enumerationMarkers — символы нумерации и маркеров списка в начале строки
const enumerationMarkers = "•·-–—*1234567890.) \t"

// ParseQuestions разбирает ответ модели: по вопросу на строку.
// Маркеры нумерации снимаются, пустые строки пропускаются, лишние вопросы отбрасываются.
func ParseQuestions(raw string, count int) ([]string, error) {
	questions := make([]string, 0, count)

	for _, line := range strings.Split(raw, "\n") {
		question := strings.TrimLeft(strings.TrimSpace(line), enumerationMarkers)
		// закрывающее выделение markdown: "**Вопрос?**"
		question = strings.TrimSpace(strings.TrimRight(question, "*"))
		if question == "" {
			continue
		}
		questions = append(questions, question)
		if len(questions) == count {
			break
		}
	}

	if len(questions) < count {
		return nil, newError(KindGenerationShortfall,
			fmt.Sprintf("получено %d вопросов из %d", len(questions), count), nil)
	}

	return questions, nil
}
