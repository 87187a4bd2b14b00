package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type fakeText struct {
	mu        sync.Mutex
	questions string
	story     string
	errs      []error
	calls     []string
}

func (f *fakeText) Complete(ctx context.Context, systemRole, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, userPrompt)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	// промпт истории содержит расшифровку диалога
	if strings.Contains(userPrompt, "Q: ") {
		return f.story, nil
	}
	return f.questions, nil
}

func (f *fakeText) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeSynth struct {
	calls int
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("ID3"), []byte(text)...), nil
}

type fakeImages struct {
	calls int
	err   error
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) (*Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Image{URL: "https://example.com/image.webp"}, nil
}

// blockingText ждет отмены контекста
type blockingText struct{}

func (blockingText) Complete(ctx context.Context, systemRole, userPrompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

var errRemote = errors.New("remote unavailable")
