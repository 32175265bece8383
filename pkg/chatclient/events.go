// Package chatclient is the protocol-facing client layer: it decodes the
// turn event stream, reconciles a chat transcript by message identity, and
// owns the completed-module set that the server only mirrors.
package chatclient

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Event types on the turn stream.
const (
	EventThread = "thread"
	EventText   = "text"
	EventDone   = "done"
	EventError  = "error"
)

// Event is one decoded turn event.
type Event struct {
	Type     string
	ThreadID string
	Text     string
	Err      string
}

// eventPayload is the union of the per-event data bodies.
type eventPayload struct {
	ThreadID string `json:"threadId"`
	Text     string `json:"text"`
	Error    string `json:"error"`
}

// Decoder reads server-sent events from a turn stream.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder wraps a stream body.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{scanner: bufio.NewScanner(r)}
}

// Next returns the next event, or io.EOF when the stream ends cleanly.
func (d *Decoder) Next() (Event, error) {
	var eventType string
	var data string

	for d.scanner.Scan() {
		line := d.scanner.Text()
		switch {
		case line == "":
			if eventType != "" {
				return buildEvent(eventType, data)
			}
		case strings.HasPrefix(line, "event: "):
			eventType = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, err
	}
	if eventType != "" {
		// Stream ended without the trailing blank line.
		return buildEvent(eventType, data)
	}
	return Event{}, io.EOF
}

func buildEvent(eventType, data string) (Event, error) {
	var payload eventPayload
	if data != "" {
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return Event{}, fmt.Errorf("decode %s event: %w", eventType, err)
		}
	}
	return Event{
		Type:     eventType,
		ThreadID: payload.ThreadID,
		Text:     payload.Text,
		Err:      payload.Error,
	}, nil
}
