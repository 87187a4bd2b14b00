package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-story-bot/internal/config"
)

func TestFirstOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"single url", `"https://x/1.webp"`, "https://x/1.webp", false},
		{"list of urls", `["https://x/1.webp","https://x/2.webp"]`, "https://x/1.webp", false},
		{"list of data uris", `["data:image/png;base64,AAAA"]`, "data:image/png;base64,AAAA", false},
		{"list of file objects", `[{"url":"https://x/1.webp"}]`, "https://x/1.webp", false},
		{"empty list", `[]`, "", true},
		{"unknown object", `{"foo":1}`, "", true},
		{"null", `null`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstOutput(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateWithPreferWait(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/black-forest-labs/flux-schnell/predictions":
			assert.Equal(t, "wait", r.Header.Get("Prefer"))
			assert.Equal(t, "Bearer r8-token", r.Header.Get("Authorization"))

			var req predictionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "юрта", req.Input["prompt"])

			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"p1","status":"succeeded","output":["%s/files/1.webp"]}`, srvURL)
		case "/files/1.webp":
			w.Header().Set("Content-Type", "image/webp")
			_, _ = io.WriteString(w, "RIFFwebp")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	r := NewReplicate(config.ReplicateConfig{APIToken: "r8-token", Model: "black-forest-labs/flux-schnell"}, srv.URL, srv.Client())
	img, err := r.Generate(context.Background(), "юрта")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/files/1.webp", img.URL)
	assert.Equal(t, []byte("RIFFwebp"), img.Data)
	assert.Equal(t, "image/webp", img.ContentType)
}

func TestGeneratePollsUntilDone(t *testing.T) {
	var (
		srvURL string
		polls  atomic.Int32
	)
	png := base64.StdEncoding.EncodeToString([]byte("PNGDATA"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/m/predictions":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"id":"p2","status":"starting","urls":{"get":"%s/predictions/p2"}}`, srvURL)
		case "/predictions/p2":
			if polls.Add(1) < 2 {
				_, _ = io.WriteString(w, `{"id":"p2","status":"processing"}`)
				return
			}
			fmt.Fprintf(w, `{"id":"p2","status":"succeeded","output":"data:image/png;base64,%s"}`, png)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	r := NewReplicate(config.ReplicateConfig{APIToken: "t", Model: "m"}, srv.URL, srv.Client())
	r.pollInterval = 5 * time.Millisecond

	img, err := r.Generate(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), img.Data)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Empty(t, img.URL)
	assert.Equal(t, int32(2), polls.Load())
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"failed prediction", http.StatusCreated, `{"id":"p","status":"failed","error":"NSFW"}`, "failed"},
		{"unknown output", http.StatusCreated, `{"id":"p","status":"succeeded","output":{"weird":true}}`, "неизвестный формат"},
		{"http error", http.StatusUnauthorized, `{"detail":"Invalid token"}`, "401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			r := NewReplicate(config.ReplicateConfig{APIToken: "t", Model: "m"}, srv.URL, srv.Client())
			_, err := r.Generate(context.Background(), "prompt")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
