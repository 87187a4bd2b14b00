package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	MIMEText = "text/plain"
	MIMEMP3  = "audio/mpeg"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// File — скачиваемый артефакт
type File struct {
	Name string
	MIME string
	Data []byte
}

// TextName формирует имя текстового файла: <prefix>_YYYYMMDD_HHMMSS.txt
func TextName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.txt", prefix, at.Format("20060102_150405"))
}

// TextFile упаковывает историю в текстовый файл
func TextFile(prefix, story string, at time.Time) File {
	return File{
		Name: TextName(prefix, at),
		MIME: MIMEText,
		Data: []byte(story),
	}
}

// AudioFile упаковывает озвучку под фиксированным именем
func AudioFile(name string, data []byte) File {
	return File{
		Name: name,
		MIME: MIMEMP3,
		Data: data,
	}
}

// Save записывает артефакт в каталог и возвращает путь
func Save(dir string, f File) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}

	path := filepath.Join(dir, f.Name)
	if err := os.WriteFile(path, f.Data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}

	return path, nil
}
