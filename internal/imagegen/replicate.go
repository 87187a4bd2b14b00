package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"family-story-bot/internal/config"
	"family-story-bot/internal/interview"
)

const defaultPollInterval = time.Second

// Replicate генерирует картинку через predictions API Replicate
type Replicate struct {
	token        string
	model        string
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

type predictionRequest struct {
	Input map[string]interface{} `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func NewReplicate(cfg config.ReplicateConfig, baseURL string, httpClient *http.Client) *Replicate {
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Replicate{
		token:        cfg.APIToken,
		model:        cfg.Model,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       httpClient,
		pollInterval: defaultPollInterval,
	}
}

// Generate запускает модель и ждет результата. Ссылки на файлы скачиваются,
// чтобы хосты могли отдать картинку как файл.
func (r *Replicate) Generate(ctx context.Context, prompt string) (*interview.Image, error) {
	payload, err := json.Marshal(predictionRequest{Input: map[string]interface{}{"prompt": prompt}})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/models/%s/predictions", r.baseURL, r.model), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	p, err := r.doPrediction(req)
	if err != nil {
		return nil, err
	}

	for !finished(p.Status) {
		if p.URLs.Get == "" {
			return nil, fmt.Errorf("replicate: prediction %s has no poll url", p.ID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URLs.Get, nil)
		if err != nil {
			return nil, err
		}
		if p, err = r.doPrediction(req); err != nil {
			return nil, err
		}
	}

	if p.Status != "succeeded" {
		return nil, fmt.Errorf("replicate: prediction %s %s: %v", p.ID, p.Status, p.Error)
	}

	ref, err := FirstOutput(p.Output)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, ref)
}

func (r *Replicate) doPrediction(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate read: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("replicate error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p prediction
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("replicate decode: %w", err)
	}
	return &p, nil
}

func finished(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// FirstOutput достает первую ссылку из вывода модели.
// Поддерживаются: одна строка, список строк, список объектов {"url": ...}.
func FirstOutput(raw json.RawMessage) (string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], nil
	}

	var files []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &files); err == nil && len(files) > 0 && files[0].URL != "" {
		return files[0].URL, nil
	}

	return "", fmt.Errorf("неизвестный формат вывода модели: %s", truncate(string(raw), 120))
}

func (r *Replicate) resolve(ctx context.Context, ref string) (*interview.Image, error) {
	if strings.HasPrefix(ref, "data:") {
		return decodeDataURI(ref)
	}

	img := &interview.Image{URL: ref}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return img, nil
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return img, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return img, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return img, nil
	}

	// ссылки достаточно; байты — для хостов, которые пишут файлы
	img.Data = data
	img.ContentType = resp.Header.Get("Content-Type")
	return img, nil
}

func decodeDataURI(uri string) (*interview.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("битый data URI")
	}

	contentType := strings.TrimSuffix(meta, ";base64")
	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URI base64: %w", err)
		}
		data = decoded
	} else {
		data = []byte(payload)
	}

	return &interview.Image{Data: data, ContentType: contentType}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
