package chatclient

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecoder(t *testing.T) {
	stream := strings.Join([]string{
		"event: thread",
		`data: {"threadId": "thread-1"}`,
		"",
		"event: text",
		`data: {"text": "Hello"}`,
		"",
		"event: done",
		"data: {}",
		"",
	}, "\n")

	dec := NewDecoder(strings.NewReader(stream))

	want := []Event{
		{Type: EventThread, ThreadID: "thread-1"},
		{Type: EventText, Text: "Hello"},
		{Type: EventDone},
	}
	for i, w := range want {
		got, err := dec.Next()
		if err != nil {
			t.Fatalf("Next() #%d error = %v", i, err)
		}
		if got != w {
			t.Errorf("Next() #%d = %+v, want %+v", i, got, w)
		}
	}

	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after stream end = %v, want io.EOF", err)
	}
}

func TestDecoder_ErrorEvent(t *testing.T) {
	stream := "event: error\ndata: {\"error\": \"model overloaded\"}\n\n"

	dec := NewDecoder(strings.NewReader(stream))
	got, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got.Type != EventError || got.Err != "model overloaded" {
		t.Errorf("Next() = %+v", got)
	}
}

func TestDecoder_MissingTrailingBlankLine(t *testing.T) {
	dec := NewDecoder(strings.NewReader("event: done\ndata: {}"))

	got, err := dec.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got.Type != EventDone {
		t.Errorf("Next() = %+v, want done", got)
	}
}

func TestDecoder_MalformedData(t *testing.T) {
	dec := NewDecoder(strings.NewReader("event: text\ndata: not-json\n\n"))

	if _, err := dec.Next(); err == nil {
		t.Fatal("Next() error = nil, want decode failure")
	}
}

func TestDecoder_EmptyStream(t *testing.T) {
	dec := NewDecoder(strings.NewReader(""))
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() = %v, want io.EOF", err)
	}
}
