// Package ai provides the client for the LLM provider's threaded assistant
// API: thread creation, message appends, and streamed runs.
package ai

import "context"

// StreamChunk is one increment of a streamed assistant reply. Exactly one
// terminal chunk (Done or Err set) ends every stream.
type StreamChunk struct {
	Text string
	Done bool
	Err  error
}

// Assistant is the interface to the provider's assistant API. The per-turn
// instructions are passed on every run; the provider holds the conversation
// history against the thread id.
type Assistant interface {
	// CreateThread creates a new conversation thread and returns its id.
	CreateThread(ctx context.Context) (string, error)
	// AddUserMessage appends a user message to an existing thread.
	AddUserMessage(ctx context.Context, threadID, text string) error
	// StreamRun starts a run on the thread and streams incremental text.
	// Cancelling ctx aborts the upstream stream.
	StreamRun(ctx context.Context, threadID, assistantID, instructions string) (<-chan StreamChunk, error)
}
