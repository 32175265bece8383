package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contentcoach/coachbot/internal/course"
	"github.com/contentcoach/coachbot/internal/platform/cache"
)

const (
	dbTimeout      = 5 * time.Second
	botCacheTTL    = time.Minute
	botCachePrefix = "bot:"
)

// PostgresStore is a PostgreSQL-backed Store. An optional Redis cache fronts
// bot reads, which happen once per chat turn.
type PostgresStore struct {
	pool  *pgxpool.Pool
	cache *cache.Cache
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithBotCache caches bot records in Redis with a short TTL.
func WithBotCache(c *cache.Cache) PostgresOption {
	return func(s *PostgresStore) {
		s.cache = c
	}
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	s := &PostgresStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// botRecord is the cacheable wire form of a bot row, with the course map kept
// raw so the parse/tag boundary stays in one place.
type botRecord struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id"`
	Name         string          `json:"name"`
	AssistantID  string          `json:"assistant_id"`
	SystemPrompt string          `json:"system_prompt"`
	AccessHash   string          `json:"access_hash"`
	CourseMap    json.RawMessage `json:"course_map"`
}

func (s *PostgresStore) GetBot(id string) (*Bot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if rec, ok := s.cachedBot(ctx, id); ok {
		return recordToBot(rec)
	}

	var rec botRecord
	var systemPrompt, accessHash *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, assistant_id, system_prompt, access_hash, course_map
		 FROM bots
		 WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.OwnerID, &rec.Name, &rec.AssistantID, &systemPrompt, &accessHash, &rec.CourseMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get bot %s: %w", id, ErrBotNotFound)
		}
		return nil, fmt.Errorf("get bot: %w", err)
	}
	if systemPrompt != nil {
		rec.SystemPrompt = *systemPrompt
	}
	if accessHash != nil {
		rec.AccessHash = *accessHash
	}

	s.storeCachedBot(ctx, rec)
	return recordToBot(rec)
}

func (s *PostgresStore) cachedBot(ctx context.Context, id string) (botRecord, bool) {
	if s.cache == nil {
		return botRecord{}, false
	}
	var rec botRecord
	if err := s.cache.GetJSON(ctx, botCachePrefix+id, &rec); err != nil {
		return botRecord{}, false
	}
	return rec, true
}

func (s *PostgresStore) storeCachedBot(ctx context.Context, rec botRecord) {
	if s.cache == nil {
		return
	}
	// Cache write failures are invisible to callers; the next read hits the
	// database again.
	_ = s.cache.SetJSON(ctx, botCachePrefix+rec.ID, rec, botCacheTTL)
}

func recordToBot(rec botRecord) (*Bot, error) {
	courseMap, err := course.ParseMap(rec.CourseMap)
	if err != nil {
		return nil, fmt.Errorf("bot %s: %w", rec.ID, err)
	}
	return &Bot{
		ID:           rec.ID,
		OwnerID:      rec.OwnerID,
		Name:         rec.Name,
		AssistantID:  rec.AssistantID,
		SystemPrompt: rec.SystemPrompt,
		AccessHash:   rec.AccessHash,
		CourseMap:    courseMap,
	}, nil
}

func (s *PostgresStore) CreateThread(t Thread) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if t.ID == "" {
		return fmt.Errorf("thread id is required")
	}
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO threads (id, bot_id, session_id, title, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.BotID, t.SessionID, nullIfEmpty(t.Title), createdAt,
	)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListThreads(botID, sessionID string) ([]Thread, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id, bot_id, session_id, COALESCE(title, ''), created_at
		 FROM threads
		 WHERE bot_id = $1 AND session_id = $2
		 ORDER BY created_at DESC`,
		botID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.BotID, &t.SessionID, &t.Title, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return threads, nil
}

func (s *PostgresStore) GetThread(threadID, sessionID string) (*Thread, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var t Thread
	err := s.pool.QueryRow(ctx,
		`SELECT id, bot_id, session_id, COALESCE(title, ''), created_at
		 FROM threads
		 WHERE id = $1 AND session_id = $2`,
		threadID, sessionID,
	).Scan(&t.ID, &t.BotID, &t.SessionID, &t.Title, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get thread %s: %w", threadID, ErrThreadNotFound)
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) AddMessage(msg Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if msg.Role == "" {
		return fmt.Errorf("message role is required")
	}
	if msg.Content == "" {
		return fmt.Errorf("message content is required")
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (thread_id, role, content, student_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		msg.ThreadID, msg.Role, msg.Content, nullIfEmpty(msg.StudentID), createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(threadID, studentID string) ([]Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	query := `SELECT id, thread_id, role, content, COALESCE(student_id, ''), created_at
		 FROM messages
		 WHERE thread_id = $1`
	args := []any{threadID}
	if studentID != "" {
		query += ` AND student_id = $2`
		args = append(args, studentID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &m.Content, &m.StudentID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

func (s *PostgresStore) GetProgress(botID, sessionID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT completed_module_ids
		 FROM student_progress
		 WHERE bot_id = $1 AND session_id = $2`,
		botID, sessionID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *PostgresStore) UpsertProgress(botID, sessionID string, completedIDs []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if completedIDs == nil {
		completedIDs = []string{}
	}
	raw, err := json.Marshal(completedIDs)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	// Last-writer-wins by (bot, session): the client replaces the whole set.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO student_progress (bot_id, session_id, completed_module_ids, updated_at)
		 VALUES ($1, $2, $3::jsonb, NOW())
		 ON CONFLICT (bot_id, session_id)
		 DO UPDATE SET completed_module_ids = EXCLUDED.completed_module_ids, updated_at = NOW()`,
		botID, sessionID, string(raw),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListProgress(botID string) ([]Progress, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT session_id, completed_module_ids, updated_at
		 FROM student_progress
		 WHERE bot_id = $1
		 ORDER BY session_id ASC`,
		botID,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var results []Progress
	for rows.Next() {
		p := Progress{BotID: botID}
		var raw []byte
		if err := rows.Scan(&p.SessionID, &raw, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		if err := json.Unmarshal(raw, &p.CompletedIDs); err != nil {
			return nil, fmt.Errorf("decode progress: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return results, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
