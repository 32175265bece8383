package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/contentcoach/coachbot/internal/agent"
)

// handleChat runs one chat turn over an SSE-style stream. Engine errors are
// only possible before the first event, so they still map to plain statuses.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req agent.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.SessionID = sessionID

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sink := &sseSink{w: w, flusher: flusher}
	if err := s.engine.RunTurn(r.Context(), req, sink); err != nil {
		switch {
		case errors.Is(err, agent.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, agent.ErrBotNotFound):
			writeError(w, http.StatusNotFound, "bot not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to run chat turn")
		}
	}
}

// sseSink writes turn events as server-sent events. Headers go out lazily on
// the first event so that pre-stream failures can still use an HTTP status.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseSink) Thread(threadID string) error {
	return s.event("thread", map[string]string{"threadId": threadID})
}

func (s *sseSink) Text(delta string) error {
	return s.event("text", map[string]string{"text": delta})
}

func (s *sseSink) Done() error {
	return s.event("done", struct{}{})
}

func (s *sseSink) Error(msg string) error {
	return s.event("error", map[string]string{"error": msg})
}

func (s *sseSink) event(name string, payload any) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("write %s event: %w", name, err)
	}
	s.flusher.Flush()
	return nil
}
