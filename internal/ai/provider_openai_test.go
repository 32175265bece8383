package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIAssistant_CreateThread(t *testing.T) {
	var gotAuth, gotBeta string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/threads" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("OpenAI-Beta")
		w.Write([]byte(`{"id": "thread_123"}`))
	}))
	defer server.Close()

	a := NewOpenAIAssistant("sk-test", WithBaseURL(server.URL))

	id, err := a.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	if id != "thread_123" {
		t.Errorf("thread id = %q, want thread_123", id)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBeta != "assistants=v2" {
		t.Errorf("OpenAI-Beta = %q", gotBeta)
	}
}

func TestOpenAIAssistant_CreateThread_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer server.Close()

	a := NewOpenAIAssistant("sk-bad", WithBaseURL(server.URL))
	if _, err := a.CreateThread(context.Background()); err == nil {
		t.Fatal("CreateThread() error = nil, want api error")
	}
}

func TestOpenAIAssistant_AddUserMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/thread_123/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": "msg_1"}`))
	}))
	defer server.Close()

	a := NewOpenAIAssistant("sk-test", WithBaseURL(server.URL))
	if err := a.AddUserMessage(context.Background(), "thread_123", "hello"); err != nil {
		t.Fatalf("AddUserMessage() error = %v", err)
	}
}

func collectChunks(t *testing.T, ch <-chan StreamChunk) (text string, done bool, errChunk error) {
	t.Helper()
	for chunk := range ch {
		if chunk.Err != nil {
			return text, done, chunk.Err
		}
		if chunk.Done {
			done = true
			continue
		}
		text += chunk.Text
	}
	return text, done, nil
}

func TestOpenAIAssistant_StreamRun(t *testing.T) {
	stream := strings.Join([]string{
		"event: thread.run.created",
		`data: {"id": "run_1"}`,
		"",
		"event: thread.message.delta",
		`data: {"delta": {"content": [{"type": "text", "text": {"value": "Hello"}}]}}`,
		"",
		"event: thread.message.delta",
		`data: {"delta": {"content": [{"type": "text", "text": {"value": ", world"}}]}}`,
		"",
		"event: done",
		"data: [DONE]",
		"",
	}, "\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/thread_123/runs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(stream))
	}))
	defer server.Close()

	a := NewOpenAIAssistant("sk-test", WithBaseURL(server.URL))
	ch, err := a.StreamRun(context.Background(), "thread_123", "asst_1", "be helpful")
	if err != nil {
		t.Fatalf("StreamRun() error = %v", err)
	}

	text, done, errChunk := collectChunks(t, ch)
	if errChunk != nil {
		t.Fatalf("stream error = %v", errChunk)
	}
	if text != "Hello, world" {
		t.Errorf("accumulated text = %q", text)
	}
	if !done {
		t.Error("no done chunk received")
	}
}

func TestOpenAIAssistant_StreamRun_RunFailed(t *testing.T) {
	stream := strings.Join([]string{
		"event: thread.message.delta",
		`data: {"delta": {"content": [{"type": "text", "text": {"value": "partial"}}]}}`,
		"",
		"event: thread.run.failed",
		`data: {"last_error": {"message": "rate limit exceeded"}}`,
		"",
	}, "\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stream))
	}))
	defer server.Close()

	a := NewOpenAIAssistant("sk-test", WithBaseURL(server.URL))
	ch, err := a.StreamRun(context.Background(), "t", "a", "")
	if err != nil {
		t.Fatalf("StreamRun() error = %v", err)
	}

	text, done, errChunk := collectChunks(t, ch)
	if errChunk == nil {
		t.Fatal("expected terminal error chunk")
	}
	if !strings.Contains(errChunk.Error(), "rate limit exceeded") {
		t.Errorf("error = %v, want provider message", errChunk)
	}
	if text != "partial" {
		t.Errorf("text before failure = %q", text)
	}
	if done {
		t.Error("done after a failed run")
	}
}

func TestOpenAIAssistant_StreamRun_EOFTreatedAsDone(t *testing.T) {
	stream := strings.Join([]string{
		"event: thread.message.delta",
		`data: {"delta": {"content": [{"type": "text", "text": {"value": "tail"}}]}}`,
		"",
	}, "\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(stream))
	}))
	defer server.Close()

	a := NewOpenAIAssistant("sk-test", WithBaseURL(server.URL))
	ch, err := a.StreamRun(context.Background(), "t", "a", "")
	if err != nil {
		t.Fatalf("StreamRun() error = %v", err)
	}

	text, done, errChunk := collectChunks(t, ch)
	if errChunk != nil {
		t.Fatalf("stream error = %v", errChunk)
	}
	if text != "tail" || !done {
		t.Errorf("text = %q, done = %v; want tail, true", text, done)
	}
}

func TestOpenAIAssistant_StreamRun_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "no such assistant"}}`))
	}))
	defer server.Close()

	a := NewOpenAIAssistant("sk-test", WithBaseURL(server.URL))
	if _, err := a.StreamRun(context.Background(), "t", "a", ""); err == nil {
		t.Fatal("StreamRun() error = nil, want api error")
	}
}

func TestParseDeltaText(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"text part", `{"delta": {"content": [{"type": "text", "text": {"value": "hi"}}]}}`, "hi"},
		{"multiple parts", `{"delta": {"content": [{"type": "text", "text": {"value": "a"}}, {"type": "text", "text": {"value": "b"}}]}}`, "ab"},
		{"image part ignored", `{"delta": {"content": [{"type": "image_file"}]}}`, ""},
		{"malformed", `not json`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDeltaText(tt.data); got != tt.want {
				t.Errorf("parseDeltaText() = %q, want %q", got, tt.want)
			}
		})
	}
}
