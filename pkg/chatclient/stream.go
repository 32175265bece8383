package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrStreamTimeout reports that the stream produced no activity for longer
// than the inactivity window and was abandoned.
var ErrStreamTimeout = errors.New("chat stream timed out")

const (
	defaultInactivityTimeout = 60 * time.Second
	defaultHintAfter         = 10 * time.Second
)

// ChatRequest is the wire body of one chat turn.
type ChatRequest struct {
	Message            string   `json:"message"`
	ThreadID           string   `json:"threadId,omitempty"`
	BotID              string   `json:"botId"`
	AssistantID        string   `json:"assistantId"`
	StudentID          string   `json:"studentId,omitempty"`
	CompletedModuleIDs []string `json:"completedModuleIds,omitempty"`
}

// Client streams chat turns from the server.
type Client struct {
	BaseURL    string
	SessionID  string
	HTTPClient *http.Client

	// InactivityTimeout abandons the turn when no event arrives for this
	// long. Zero means the 60s default.
	InactivityTimeout time.Duration

	// HintAfter fires OnHint once when the stream has been quiet for this
	// long. It warns, it does not cancel. Zero means the 10s default.
	HintAfter time.Duration
	OnHint    func()
}

// StreamTurn posts one turn and invokes onEvent for every decoded event until
// the terminal event. A terminal error event becomes the returned error. The
// callback's error aborts the stream.
func (c *Client) StreamTurn(ctx context.Context, req ChatRequest, onEvent func(Event) error) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode turn request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build turn request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Session-Id", c.SessionID)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("start turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeErrorResponse(resp)
	}

	events := make(chan Event)
	decodeErrs := make(chan error, 1)
	go func() {
		defer close(events)
		dec := NewDecoder(resp.Body)
		for {
			ev, err := dec.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					decodeErrs <- err
				}
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	inactivity := c.InactivityTimeout
	if inactivity == 0 {
		inactivity = defaultInactivityTimeout
	}
	hintAfter := c.HintAfter
	if hintAfter == 0 {
		hintAfter = defaultHintAfter
	}

	watchdog := time.NewTimer(inactivity)
	defer watchdog.Stop()
	hint := time.NewTimer(hintAfter)
	defer hint.Stop()
	hinted := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-watchdog.C:
			cancel()
			return ErrStreamTimeout
		case <-hint.C:
			if !hinted && c.OnHint != nil {
				c.OnHint()
			}
			hinted = true
		case ev, ok := <-events:
			if !ok {
				select {
				case err := <-decodeErrs:
					return fmt.Errorf("read turn stream: %w", err)
				default:
				}
				// Stream ended without a terminal event.
				return io.ErrUnexpectedEOF
			}

			resetTimer(watchdog, inactivity)
			if !hinted {
				resetTimer(hint, hintAfter)
			}

			if err := onEvent(ev); err != nil {
				return err
			}
			switch ev.Type {
			case EventDone:
				return nil
			case EventError:
				return fmt.Errorf("turn failed: %s", ev.Err)
			}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func decodeErrorResponse(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("turn rejected (%d): %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("turn rejected: status %d", resp.StatusCode)
}
