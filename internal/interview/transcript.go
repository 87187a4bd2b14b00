package interview

import "strings"

// FormatTranscript сериализует диалог чередующимися строками "Q:" и "A:"
func FormatTranscript(pairs []QA) string {
	lines := make([]string, 0, len(pairs)*2)
	for _, qa := range pairs {
		lines = append(lines, "Q: "+qa.Question, "A: "+qa.Answer)
	}
	return strings.Join(lines, "\n")
}
