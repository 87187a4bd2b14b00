package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// gtranslateLimit — максимальная длина фрагмента для translate_tts
const gtranslateLimit = 200

// GoogleTranslate озвучивает текст бесплатным голосом Google Translate.
// Длинный текст режется на фрагменты, mp3-ответы склеиваются по порядку.
type GoogleTranslate struct {
	baseURL string
	client  *http.Client
}

func NewGoogleTranslate(baseURL string, httpClient *http.Client) *GoogleTranslate {
	if baseURL == "" {
		baseURL = "https://translate.google.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &GoogleTranslate{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

func (g *GoogleTranslate) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	chunks := SplitText(text, gtranslateLimit)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("пустой текст для озвучки")
	}
	if language == "" {
		language = "ru"
	}

	var out bytes.Buffer
	for i, chunk := range chunks {
		audio, err := g.fetch(ctx, chunk, language, i, len(chunks))
		if err != nil {
			return nil, fmt.Errorf("фрагмент %d/%d: %w", i+1, len(chunks), err)
		}
		out.Write(audio)
	}

	return out.Bytes(), nil
}

func (g *GoogleTranslate) fetch(ctx context.Context, chunk, language string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", language)
	q.Set("q", chunk)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/translate_tts?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("translate_tts error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return io.ReadAll(resp.Body)
}
