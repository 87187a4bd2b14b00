package speech

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"empty", "   ", 10, nil},
		{"short", "Жили-были", 200, []string{"Жили-были"}},
		{"word boundaries", "раз два три четыре", 8, []string{"раз два", "три", "четыре"}},
		{"long word", "абвгдеёжз ок", 4, []string{"абвг", "деёж", "з", "ок"}},
		{"no limit", "a b c", 0, []string{"a b c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitText(tt.text, tt.limit))
		})
	}
}

func TestSplitTextRespectsLimit(t *testing.T) {
	text := strings.Repeat("Бабушка готовила бешбармак на Наурыз. ", 40)

	chunks := SplitText(text, gtranslateLimit)

	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), gtranslateLimit)
	}
	assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))
}

func TestSplitByRuneCount(t *testing.T) {
	assert.Equal(t, []string{"абв", "где", "ё"}, splitByRuneCount("абвгдеё", 3))
	assert.Equal(t, []string{"абв"}, splitByRuneCount("абв", 3))
	assert.Empty(t, splitByRuneCount("", 3))
}
