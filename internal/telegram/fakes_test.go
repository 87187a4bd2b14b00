package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"family-story-bot/internal/interview"
)

const testToken = "123:ABC"

type apiCall struct {
	Method   string
	ChatID   string
	Text     string
	FileName string
	Data     []byte
	PhotoURL string
}

// fakeAPI — минимальный Bot API: записывает вызовы и отдает файлы
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	files map[string][]byte
	srv   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{files: map[string][]byte{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if filePath, ok := strings.CutPrefix(r.URL.Path, "/file/bot"+testToken+"/"); ok {
		data, found := f.files[filePath]
		if !found {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
		return
	}

	method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")
	call := apiCall{Method: method}

	switch method {
	case "sendMessage":
		var req SendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		call.ChatID = fmt.Sprint(req.ChatID)
		call.Text = req.Text

	case "sendDocument", "sendAudio", "sendPhoto":
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			_ = r.ParseMultipartForm(10 << 20)
			field := map[string]string{"sendDocument": "document", "sendAudio": "audio", "sendPhoto": "photo"}[method]
			if file, header, err := r.FormFile(field); err == nil {
				call.FileName = header.Filename
				call.Data, _ = io.ReadAll(file)
				file.Close()
			}
		} else {
			_ = r.ParseForm()
			call.PhotoURL = r.PostForm.Get("photo")
		}
		call.ChatID = r.FormValue("chat_id")
		call.Text = r.FormValue("caption")

	case "getFile":
		fileID := r.URL.Query().Get("file_id")
		f.record(apiCall{Method: method, Text: fileID})
		fmt.Fprintf(w, `{"ok":true,"result":{"file_id":%q,"file_path":"voice/%s.oga"}}`, fileID, fileID)
		return

	case "getUpdates":
		f.record(call)
		_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
		return

	default:
		_, _ = io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		return
	}

	f.record(call)
	_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
}

func (f *fakeAPI) record(c apiCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeAPI) byMethod(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) texts() string {
	var sb strings.Builder
	for _, c := range f.byMethod("sendMessage") {
		sb.WriteString(c.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

type scriptedText struct {
	mu    sync.Mutex
	calls int
}

func (s *scriptedText) Complete(ctx context.Context, systemRole, userPrompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if strings.Contains(userPrompt, "Q: ") {
		return "Жили-были бабушка и её *бешбармак*.", nil
	}
	return "1. Что готовила бабушка?\n2. Какое блюдо было на праздник?\n3. Кто учил вас готовить?", nil
}

type recordingTranscriber struct {
	filenames []string
}

func (r *recordingTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	r.filenames = append(r.filenames, filename)
	return "Баурсаки " + string(audio), nil
}

type countingSynth struct {
	calls int
}

func (c *countingSynth) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	c.calls++
	return []byte("ID3" + language), nil
}

var _ interview.TextGenerator = (*scriptedText)(nil)
