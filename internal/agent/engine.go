package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contentcoach/coachbot/internal/ai"
)

// titlePreviewLen bounds the thread title derived from the opening message.
const titlePreviewLen = 50

// TurnRequest is one user message plus the client's progress snapshot.
type TurnRequest struct {
	BotID              string   `json:"botId"`
	AssistantID        string   `json:"assistantId"`
	SessionID          string   `json:"-"`
	StudentID          string   `json:"studentId,omitempty"`
	ThreadID           string   `json:"threadId,omitempty"`
	Message            string   `json:"message"`
	CompletedModuleIDs []string `json:"completedModuleIds,omitempty"`
}

// EventSink receives the turn's protocol events in order: exactly one Thread,
// zero or more Text deltas, then exactly one terminal Done or Error.
type EventSink interface {
	Thread(threadID string) error
	Text(delta string) error
	Done() error
	Error(msg string) error
}

// Engine drives chat turns against the assistant provider and the store.
type Engine struct {
	assistant ai.Assistant
	store     Store
}

// EngineConfig holds dependencies for the engine.
type EngineConfig struct {
	Assistant ai.Assistant
	Store     Store
}

// NewEngine creates a chat engine.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Engine{
		assistant: cfg.Assistant,
		store:     store,
	}
}

// RunTurn executes one chat turn. Errors returned here happened before any
// event was emitted, so the transport can still answer with a plain HTTP
// status. Once the sink has seen its Thread event, failures become a terminal
// Error event instead and RunTurn returns nil.
func (e *Engine) RunTurn(ctx context.Context, req TurnRequest, sink EventSink) error {
	if req.Message == "" {
		return fmt.Errorf("message is required: %w", ErrInvalidInput)
	}
	if req.BotID == "" || req.AssistantID == "" {
		return fmt.Errorf("bot id and assistant id are required: %w", ErrInvalidInput)
	}

	bot, err := e.store.GetBot(req.BotID)
	if err != nil {
		return err
	}

	threadID, err := e.resolveThread(ctx, req)
	if err != nil {
		return err
	}

	// The user row is best-effort: losing it is logged, but the turn's
	// primary contract is the assistant call, so it proceeds.
	if err := e.store.AddMessage(Message{
		ThreadID:  threadID,
		Role:      "user",
		Content:   req.Message,
		StudentID: req.StudentID,
	}); err != nil {
		slog.Error("failed to persist user message", "thread_id", threadID, "error", err)
	}

	if err := e.assistant.AddUserMessage(ctx, threadID, req.Message); err != nil {
		return fmt.Errorf("append message to thread: %w", err)
	}

	instructions := buildInstructions(bot, req.CompletedModuleIDs)

	chunks, err := e.assistant.StreamRun(ctx, threadID, req.AssistantID, instructions)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	if err := sink.Thread(threadID); err != nil {
		return nil // client went away; the provider stream is ctx-bound
	}

	e.forwardStream(ctx, chunks, threadID, req.StudentID, sink)
	return nil
}

// resolveThread returns the existing thread id or creates a new one. Thread
// creation is fatal on any failure: a thread that exists at the provider but
// not durably, or vice versa, must never be surfaced to the client.
func (e *Engine) resolveThread(ctx context.Context, req TurnRequest) (string, error) {
	if req.ThreadID != "" {
		return req.ThreadID, nil
	}

	threadID, err := e.assistant.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	if err := e.store.CreateThread(Thread{
		ID:        threadID,
		BotID:     req.BotID,
		SessionID: req.SessionID,
		Title:     titlePreview(req.Message),
		CreatedAt: time.Now(),
	}); err != nil {
		return "", fmt.Errorf("persist thread: %w", err)
	}

	slog.Info("thread created", "thread_id", threadID, "bot_id", req.BotID)
	return threadID, nil
}

// forwardStream relays provider chunks to the sink unbuffered and persists
// the accumulated reply once the stream completes. A cancelled ctx (client
// gone) aborts the upstream stream and skips the persistence write.
func (e *Engine) forwardStream(ctx context.Context, chunks <-chan ai.StreamChunk, threadID, studentID string, sink EventSink) {
	var full strings.Builder

	for {
		select {
		case <-ctx.Done():
			slog.Info("turn cancelled by client", "thread_id", threadID)
			return
		case chunk, ok := <-chunks:
			if !ok {
				// Channel closed without a terminal chunk; treat as done.
				e.finishTurn(threadID, studentID, full.String(), sink)
				return
			}
			if chunk.Err != nil {
				slog.Error("provider stream error", "thread_id", threadID, "error", chunk.Err)
				sink.Error(chunk.Err.Error())
				return
			}
			if chunk.Done {
				e.finishTurn(threadID, studentID, full.String(), sink)
				return
			}
			full.WriteString(chunk.Text)
			if err := sink.Text(chunk.Text); err != nil {
				slog.Warn("client write failed, dropping turn", "thread_id", threadID, "error", err)
				return
			}
		}
	}
}

// finishTurn persists the accumulated assistant text and emits the terminal
// event. An empty reply is not persisted but still completes as Done.
func (e *Engine) finishTurn(threadID, studentID, full string, sink EventSink) {
	if strings.TrimSpace(full) != "" {
		if err := e.store.AddMessage(Message{
			ThreadID:  threadID,
			Role:      "assistant",
			Content:   full,
			StudentID: studentID,
		}); err != nil {
			slog.Error("failed to persist assistant message", "thread_id", threadID, "error", err)
			sink.Error("failed to persist assistant response")
			return
		}
	}
	sink.Done()
}

func titlePreview(message string) string {
	runes := []rune(message)
	if len(runes) <= titlePreviewLen {
		return message
	}
	return string(runes[:titlePreviewLen])
}
