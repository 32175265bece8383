package ai

import (
	"context"
	"sync"
)

// MockAssistant is a test double for Assistant.
type MockAssistant struct {
	ThreadID  string   // id returned by CreateThread (default "thread-mock")
	Chunks    []string // text deltas emitted by StreamRun
	CreateErr error
	AddErr    error
	RunErr    error // emitted as a terminal error chunk after Chunks

	mu               sync.Mutex
	CreatedThreads   int
	AddedMessages    []string
	LastThreadID     string
	LastInstructions string
}

// NewMockAssistant creates a MockAssistant streaming the given deltas.
func NewMockAssistant(chunks ...string) *MockAssistant {
	return &MockAssistant{ThreadID: "thread-mock", Chunks: chunks}
}

func (m *MockAssistant) CreateThread(_ context.Context) (string, error) {
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.mu.Lock()
	m.CreatedThreads++
	m.mu.Unlock()
	if m.ThreadID == "" {
		return "thread-mock", nil
	}
	return m.ThreadID, nil
}

func (m *MockAssistant) AddUserMessage(_ context.Context, threadID, text string) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.mu.Lock()
	m.LastThreadID = threadID
	m.AddedMessages = append(m.AddedMessages, text)
	m.mu.Unlock()
	return nil
}

func (m *MockAssistant) StreamRun(ctx context.Context, threadID, _ string, instructions string) (<-chan StreamChunk, error) {
	m.mu.Lock()
	m.LastThreadID = threadID
	m.LastInstructions = instructions
	m.mu.Unlock()

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for _, text := range m.Chunks {
			select {
			case ch <- StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
		if m.RunErr != nil {
			ch <- StreamChunk{Err: m.RunErr}
			return
		}
		ch <- StreamChunk{Done: true}
	}()
	return ch, nil
}
