package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName  = "Times New Roman"
	fontSize  = 13
	titleSize = 16
)

// DocxFile рендерит историю в .docx: заголовок и абзацы через пустую строку
func DocxFile(prefix, title, story string) (File, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return File{}, fmt.Errorf("ошибка создания документа: %w", err)
	}

	addRun(doc.AddParagraph(""), title, true, titleSize)

	for _, paragraph := range Paragraphs(story) {
		addRun(doc.AddParagraph(""), paragraph, false, fontSize)
	}

	// godocx умеет сохранять только в файл
	tmpDir, err := os.MkdirTemp("", "story-docx-*")
	if err != nil {
		return File{}, fmt.Errorf("ошибка создания временной директории: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	name := prefix + ".docx"
	path := filepath.Join(tmpDir, name)
	if err := doc.SaveTo(path); err != nil {
		return File{}, fmt.Errorf("ошибка сохранения документа: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("ошибка чтения документа: %w", err)
	}

	return File{Name: name, MIME: MIMEDocx, Data: data}, nil
}

// Paragraphs делит текст на абзацы, склеивая переносы внутри абзаца
func Paragraphs(text string) []string {
	var (
		paragraphs []string
		current    []string
	)

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		current = append(current, strings.Trim(trimmed, "*_#` "))
	}
	flush()

	return paragraphs
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
