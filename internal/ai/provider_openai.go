package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIAssistant implements Assistant against the OpenAI Assistants v2 API.
type OpenAIAssistant struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// OpenAIOption configures an OpenAIAssistant.
type OpenAIOption func(*OpenAIAssistant)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(url string) OpenAIOption {
	return func(a *OpenAIAssistant) {
		a.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(a *OpenAIAssistant) {
		a.client = client
	}
}

// NewOpenAIAssistant creates a new assistants API client.
func NewOpenAIAssistant(apiKey string, opts ...OpenAIOption) *OpenAIAssistant {
	a := &OpenAIAssistant{
		apiKey:  apiKey,
		baseURL: defaultOpenAIBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *OpenAIAssistant) CreateThread(ctx context.Context) (string, error) {
	resp, err := a.post(ctx, "/threads", []byte(`{}`))
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("create thread: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create thread: api error (status %d): %s", resp.StatusCode, string(body))
	}

	var thread struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &thread); err != nil {
		return "", fmt.Errorf("create thread: unmarshal response: %w", err)
	}
	if thread.ID == "" {
		return "", fmt.Errorf("create thread: no thread id in response")
	}
	return thread.ID, nil
}

func (a *OpenAIAssistant) AddUserMessage(ctx context.Context, threadID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"role":    "user",
		"content": text,
	})
	if err != nil {
		return fmt.Errorf("add message: marshal request: %w", err)
	}

	resp, err := a.post(ctx, "/threads/"+threadID+"/messages", payload)
	if err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("add message: api error (status %d): %s", resp.StatusCode, string(body))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (a *OpenAIAssistant) StreamRun(ctx context.Context, threadID, assistantID, instructions string) (<-chan StreamChunk, error) {
	payload, err := json.Marshal(map[string]any{
		"assistant_id":            assistantID,
		"additional_instructions": instructions,
		"stream":                  true,
	})
	if err != nil {
		return nil, fmt.Errorf("stream run: marshal request: %w", err)
	}

	resp, err := a.post(ctx, "/threads/"+threadID+"/runs", payload)
	if err != nil {
		return nil, fmt.Errorf("stream run: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("stream run: api error (status %d): %s", resp.StatusCode, string(body))
	}

	ch := make(chan StreamChunk)
	go a.readRunStream(ctx, resp.Body, ch)
	return ch, nil
}

// readRunStream parses the provider's event stream and forwards text deltas
// as they arrive. Each event is an "event:" line, a "data:" line, and a
// blank-line delimiter.
func (a *OpenAIAssistant) readRunStream(ctx context.Context, body io.ReadCloser, ch chan<- StreamChunk) {
	defer close(ch)
	defer body.Close()

	send := func(chunk StreamChunk) bool {
		select {
		case ch <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var event, data string
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "":
			switch event {
			case "thread.message.delta":
				if text := parseDeltaText(data); text != "" {
					if !send(StreamChunk{Text: text}) {
						return
					}
				}
			case "thread.run.failed", "thread.run.cancelled", "thread.run.expired", "error":
				send(StreamChunk{Err: fmt.Errorf("run failed: %s", parseRunError(data))})
				return
			case "done":
				send(StreamChunk{Done: true})
				return
			}
			event, data = "", ""
		}
	}

	if err := scanner.Err(); err != nil {
		send(StreamChunk{Err: fmt.Errorf("read stream: %w", err)})
		return
	}
	// Stream ended without an explicit done event; treat EOF as completion.
	send(StreamChunk{Done: true})
}

func parseDeltaText(data string) string {
	var delta struct {
		Delta struct {
			Content []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"delta"`
	}
	if err := json.Unmarshal([]byte(data), &delta); err != nil {
		return ""
	}

	var b strings.Builder
	for _, part := range delta.Delta.Content {
		if part.Type == "text" || part.Type == "" {
			b.WriteString(part.Text.Value)
		}
	}
	return b.String()
}

func parseRunError(data string) string {
	var run struct {
		LastError struct {
			Message string `json:"message"`
		} `json:"last_error"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &run); err == nil {
		if run.LastError.Message != "" {
			return run.LastError.Message
		}
		if run.Error.Message != "" {
			return run.Error.Message
		}
	}
	return "provider stream error"
}

func (a *OpenAIAssistant) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}
