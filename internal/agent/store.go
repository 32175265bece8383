// Package agent runs chat turns: thread identity, message persistence,
// per-turn instruction assembly, and event streaming to the client.
package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/contentcoach/coachbot/internal/course"
)

// Sentinel errors surfaced to transport handlers before streaming begins.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrBotNotFound    = errors.New("bot not found")
	ErrThreadNotFound = errors.New("thread not found")
)

// Bot is a course bot as served to the chat engine.
type Bot struct {
	ID           string
	OwnerID      string
	Name         string
	AssistantID  string
	SystemPrompt string
	AccessHash   string // bcrypt hash of the course access code; empty means open
	CourseMap    course.Map
}

// Thread links a provider conversation to a bot and an anonymous session.
type Thread struct {
	ID        string
	BotID     string
	SessionID string
	Title     string
	CreatedAt time.Time
}

// Message is one persisted chat row. Rows are append-only; a turn produces a
// user row and, if the assistant said anything, an assistant row.
type Message struct {
	ID        int64
	ThreadID  string
	Role      string
	Content   string
	StudentID string
	CreatedAt time.Time
}

// Progress is the durable mirror of one student's completed-id set for one
// bot. The set is replaced wholesale on every write: the client is the sole
// authority and the mirror converges last-writer-wins.
type Progress struct {
	BotID        string
	SessionID    string
	CompletedIDs []string
	UpdatedAt    time.Time
}

// Store persists bots, threads, messages, and progress mirrors.
type Store interface {
	GetBot(id string) (*Bot, error)
	CreateThread(t Thread) error
	ListThreads(botID, sessionID string) ([]Thread, error)
	GetThread(threadID, sessionID string) (*Thread, error)
	AddMessage(msg Message) error
	ListMessages(threadID, studentID string) ([]Message, error)
	GetProgress(botID, sessionID string) ([]string, error)
	UpsertProgress(botID, sessionID string, completedIDs []string) error
	ListProgress(botID string) ([]Progress, error)
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	bots     map[string]*Bot
	threads  map[string]*Thread
	messages []Message
	progress map[string][]string // botID+"/"+sessionID -> completed ids
	updated  map[string]time.Time
	nextID   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bots:     make(map[string]*Bot),
		threads:  make(map[string]*Thread),
		progress: make(map[string][]string),
		updated:  make(map[string]time.Time),
	}
}

// SeedBot registers a bot, typically from a YAML definition at startup.
func (s *MemoryStore) SeedBot(bot Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[bot.ID] = &bot
}

func (s *MemoryStore) GetBot(id string) (*Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bot, ok := s.bots[id]
	if !ok {
		return nil, fmt.Errorf("get bot %s: %w", id, ErrBotNotFound)
	}
	copied := *bot
	return &copied, nil
}

func (s *MemoryStore) CreateThread(t Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		return fmt.Errorf("thread id is required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.threads[t.ID] = &t
	return nil
}

func (s *MemoryStore) ListThreads(botID, sessionID string) ([]Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var threads []Thread
	for _, t := range s.threads {
		if t.BotID == botID && t.SessionID == sessionID {
			threads = append(threads, *t)
		}
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].CreatedAt.After(threads[j].CreatedAt)
	})
	return threads, nil
}

func (s *MemoryStore) GetThread(threadID, sessionID string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok || t.SessionID != sessionID {
		return nil, fmt.Errorf("get thread %s: %w", threadID, ErrThreadNotFound)
	}
	copied := *t
	return &copied, nil
}

func (s *MemoryStore) AddMessage(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Role == "" {
		return fmt.Errorf("message role is required")
	}
	if msg.Content == "" {
		return fmt.Errorf("message content is required")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.nextID++
	msg.ID = s.nextID
	s.messages = append(s.messages, msg)
	return nil
}

func (s *MemoryStore) ListMessages(threadID, studentID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var msgs []Message
	for _, m := range s.messages {
		if m.ThreadID != threadID {
			continue
		}
		if studentID != "" && m.StudentID != studentID {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *MemoryStore) GetProgress(botID, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.progress[progressKey(botID, sessionID)]
	return append([]string{}, ids...), nil
}

func (s *MemoryStore) UpsertProgress(botID, sessionID string, completedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey(botID, sessionID)
	s.progress[key] = append([]string{}, completedIDs...)
	s.updated[key] = time.Now()
	return nil
}

func (s *MemoryStore) ListProgress(botID string) ([]Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := botID + "/"
	var rows []Progress
	for key, ids := range s.progress {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		rows = append(rows, Progress{
			BotID:        botID,
			SessionID:    key[len(prefix):],
			CompletedIDs: append([]string{}, ids...),
			UpdatedAt:    s.updated[key],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].SessionID < rows[j].SessionID
	})
	return rows, nil
}

func progressKey(botID, sessionID string) string {
	return botID + "/" + sessionID
}
