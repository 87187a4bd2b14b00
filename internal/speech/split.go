package speech

import (
	"strings"
	"unicode/utf8"
)

// SplitText режет текст на куски не длиннее limit рун.
// Режем по границам слов; слово длиннее лимита режется по рунам.
func SplitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		b      strings.Builder
		n      int
	)

	flush := func() {
		if n > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
			n = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wn := utf8.RuneCountInString(word)

		if wn > limit {
			flush()
			chunks = append(chunks, splitByRuneCount(word, limit)...)
			continue
		}

		sep := 0
		if n > 0 {
			sep = 1
		}
		if n+sep+wn > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
		n += sep + wn
	}
	flush()

	return chunks
}

// splitByRuneCount режет слово на куски по limit рун, последний кусок может быть короче
func splitByRuneCount(word string, limit int) []string {
	runes := []rune(word)
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
