// Package httpapi exposes the chat engine and the student-facing course API
// over HTTP: an SSE chat endpoint, a websocket variant, history and progress
// endpoints, and the creator progress export.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/contentcoach/coachbot/internal/agent"
	"github.com/contentcoach/coachbot/internal/course"
	"github.com/contentcoach/coachbot/internal/report"
)

const sessionHeader = "X-Session-Id"

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds the server's dependencies.
type Config struct {
	Engine      *agent.Engine
	Store       agent.Store
	ReadyChecks map[string]HealthCheck
}

// Server serves the HTTP API.
type Server struct {
	engine *agent.Engine
	store  agent.Store
	checks map[string]HealthCheck
}

// New creates an API server.
func New(cfg Config) *Server {
	return &Server{
		engine: cfg.Engine,
		store:  cfg.Store,
		checks: cfg.ReadyChecks,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /ws/chat", s.handleWSChat)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/messages", s.handleMessages)
	mux.HandleFunc("GET /api/progress/{botID}", s.handleGetProgress)
	mux.HandleFunc("POST /api/progress/{botID}", s.handlePostProgress)
	mux.HandleFunc("GET /api/bot/{botID}", s.handleGetBot)
	mux.HandleFunc("POST /api/bot/{botID}/verify-access", s.handleVerifyAccess)

	mux.HandleFunc("GET /api/admin/bots/{botID}/progress.xlsx", s.handleProgressExport)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"check":  name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	botID := r.URL.Query().Get("botId")
	if botID == "" {
		writeError(w, http.StatusBadRequest, "botId is required")
		return
	}

	threads, err := s.store.ListThreads(botID, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list threads")
		return
	}

	type threadView struct {
		ThreadID  string    `json:"threadId"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"createdAt"`
	}
	views := make([]threadView, 0, len(threads))
	for _, t := range threads {
		views = append(views, threadView{ThreadID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": views})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	threadID := r.URL.Query().Get("threadId")
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "threadId is required")
		return
	}

	// Scope the lookup to the caller's session so one student can never read
	// another's transcript by guessing thread ids.
	if _, err := s.store.GetThread(threadID, sessionID); err != nil {
		if errors.Is(err, agent.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "thread not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load thread")
		return
	}

	msgs, err := s.store.ListMessages(threadID, r.URL.Query().Get("studentId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	type messageView struct {
		ID        int64     `json:"id"`
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"createdAt"`
	}
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": views})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	ids, err := s.store.GetProgress(r.PathValue("botID"), sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completedModuleIds": ids})
}

func (s *Server) handlePostProgress(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var body struct {
		CompletedModuleIDs []string `json:"completedModuleIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.store.UpsertProgress(r.PathValue("botID"), sessionID, body.CompletedModuleIDs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	bot, err := s.store.GetBot(r.PathValue("botID"))
	if err != nil {
		if errors.Is(err, agent.ErrBotNotFound) {
			writeError(w, http.StatusNotFound, "bot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load bot")
		return
	}

	rawMap, err := course.EncodeMap(bot.CourseMap)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode course map")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":            bot.ID,
		"name":          bot.Name,
		"assistantId":   bot.AssistantID,
		"courseMap":     json.RawMessage(rawMap),
		"hasAccessCode": bot.AccessHash != "",
	})
}

func (s *Server) handleVerifyAccess(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccessCode string `json:"accessCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bot, err := s.store.GetBot(r.PathValue("botID"))
	if err != nil {
		if errors.Is(err, agent.ErrBotNotFound) {
			writeError(w, http.StatusNotFound, "bot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load bot")
		return
	}

	valid := bot.AccessHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(bot.AccessHash), []byte(body.AccessCode)) == nil
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (s *Server) handleProgressExport(w http.ResponseWriter, r *http.Request) {
	botID := r.PathValue("botID")

	bot, err := s.store.GetBot(botID)
	if err != nil {
		if errors.Is(err, agent.ErrBotNotFound) {
			writeError(w, http.StatusNotFound, "bot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load bot")
		return
	}

	rows, err := s.store.ListProgress(botID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list progress")
		return
	}

	wb, err := report.BuildWorkbook(bot.CourseMap, rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}
	defer wb.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-progress.xlsx"`, botID))
	if err := wb.Write(w); err != nil {
		// Headers are out; nothing left to do but log at the access layer.
		return
	}
}

// requireSession extracts and validates the anonymous session UUID. It writes
// a 401 and returns false when the header is missing or malformed.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.Header.Get(sessionHeader)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing session id")
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session id")
		return "", false
	}
	return id.String(), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
