package console

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-story-bot/internal/config"
	"family-story-bot/internal/interview"
	"family-story-bot/internal/storage"
)

type stubText struct {
	calls    int
	storyErr error
}

func (s *stubText) Complete(ctx context.Context, systemRole, userPrompt string) (string, error) {
	s.calls++
	if strings.Contains(userPrompt, "Q: ") {
		if s.storyErr != nil {
			err := s.storyErr
			s.storyErr = nil
			return "", err
		}
		return "Жили-были.", nil
	}
	return "1. Первый?\n2. Второй?\n3. Третий?", nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return "из файла " + filename, nil
}

type stubSynth struct{}

func (stubSynth) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return []byte("ID3"), nil
}

func newTestHost(t *testing.T, input string, text *stubText) (*Host, *bytes.Buffer, string, *storage.Archive) {
	t.Helper()

	out := &bytes.Buffer{}
	outputDir := filepath.Join(t.TempDir(), "output")
	archive := storage.NewArchive(filepath.Join(t.TempDir(), "results"))

	host := NewHost(
		NewTerminalPrompterWithIO(strings.NewReader(input), out),
		interview.NewGate("s3cret"),
		func() *interview.Controller {
			return interview.NewController(config.Default(), interview.Deps{
				Text:        text,
				Transcriber: stubTranscriber{},
				Synthesizer: stubSynth{},
			})
		},
		outputDir, archive, nil,
	)
	return host, out, outputDir, archive
}

func TestHostFullInterview(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "answer.m4a")
	require.NoError(t, os.WriteFile(audioPath, []byte("m4a"), 0644))

	input := strings.Join([]string{"s3cret", "Плов", "   ", "@" + audioPath, "Мама"}, "\n") + "\n"
	text := &stubText{}
	host, out, outputDir, archive := newTestHost(t, input, text)

	require.NoError(t, host.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Вопрос 1/3: Первый?")
	assert.Contains(t, output, "Пожалуйста, дайте ответ.")
	assert.Contains(t, output, "Распознано: из файла answer.m4a")
	assert.Contains(t, output, "Жили-были.")
	assert.Equal(t, 2, text.calls)

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "family_story.mp3")
	require.Len(t, names, 2)

	ids, err := archive.ListResults()
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestHostWrongToken(t *testing.T) {
	host, out, _, _ := newTestHost(t, "a\nb\nc\n", &stubText{})

	err := host.Run(context.Background())

	require.Error(t, err)
	assert.True(t, interview.IsKind(err, interview.KindAuth))
	assert.Equal(t, 3, strings.Count(out.String(), "Неверный токен"))
}

func TestHostRetryAfterStoryFailure(t *testing.T) {
	text := &stubText{storyErr: errors.New("503")}
	host, out, _, _ := newTestHost(t, "s3cret\na\nb\nc\n\n", text)

	require.NoError(t, host.Run(context.Background()))

	assert.Contains(t, out.String(), "Ошибка при генерации")
	assert.Contains(t, out.String(), "Жили-были.")
	assert.Equal(t, 3, text.calls)
}

func TestHostQuit(t *testing.T) {
	host, out, outputDir, _ := newTestHost(t, "s3cret\n/quit\n", &stubText{})

	require.NoError(t, host.Run(context.Background()))

	assert.Contains(t, out.String(), "Интервью остановлено")
	_, err := os.Stat(outputDir)
	assert.True(t, os.IsNotExist(err))
}

func TestHostMissingAudioFile(t *testing.T) {
	host, out, _, _ := newTestHost(t, "s3cret\n@/nope/answer.mp3\n/quit\n", &stubText{})

	require.NoError(t, host.Run(context.Background()))

	assert.Contains(t, out.String(), "не удалось прочитать файл")
}

func TestPromptEOF(t *testing.T) {
	p := NewTerminalPrompterWithIO(strings.NewReader("без перевода строки"), &bytes.Buffer{})

	got, err := p.Prompt(context.Background(), "Ответ")
	require.NoError(t, err)
	assert.Equal(t, "без перевода строки", got)

	_, err = p.Prompt(context.Background(), "Ответ")
	assert.Error(t, err)
}
