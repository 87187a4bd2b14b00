package interview

import "context"

// TextGenerator — удаленная модель генерации текста
type TextGenerator interface {
	Complete(ctx context.Context, systemRole, userPrompt string) (string, error)
}

// Transcriber — распознавание речи из загруженного аудиоклипа
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Synthesizer — озвучивание текста, на выходе mp3
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// ImageGenerator — декоративная картинка к истории
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
}
