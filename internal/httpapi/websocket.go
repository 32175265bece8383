package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/contentcoach/coachbot/internal/agent"
)

// wsEvent is one turn event framed for the websocket transport. The event
// names and payloads match the SSE stream exactly.
type wsEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// handleWSChat runs one chat turn over a websocket. The client sends a single
// JSON turn request after the upgrade and receives the event stream back.
func (s *Server) handleWSChat(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var req agent.TurnRequest
	if err := wsjson.Read(ctx, conn, &req); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "invalid turn request")
		return
	}
	req.SessionID = sessionID

	sink := &wsSink{ctx: ctx, conn: conn}
	if err := s.engine.RunTurn(ctx, req, sink); err != nil {
		// The stream never started; surface the failure as the terminal event.
		msg := "failed to run chat turn"
		if errors.Is(err, agent.ErrInvalidInput) {
			msg = err.Error()
		} else if errors.Is(err, agent.ErrBotNotFound) {
			msg = "bot not found"
		}
		sink.Error(msg)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// wsSink frames turn events as websocket JSON messages.
type wsSink struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (s *wsSink) Thread(threadID string) error {
	return wsjson.Write(s.ctx, s.conn, wsEvent{Event: "thread", Data: map[string]string{"threadId": threadID}})
}

func (s *wsSink) Text(delta string) error {
	return wsjson.Write(s.ctx, s.conn, wsEvent{Event: "text", Data: map[string]string{"text": delta}})
}

func (s *wsSink) Done() error {
	return wsjson.Write(s.ctx, s.conn, wsEvent{Event: "done", Data: struct{}{}})
}

func (s *wsSink) Error(msg string) error {
	return wsjson.Write(s.ctx, s.conn, wsEvent{Event: "error", Data: map[string]string{"error": msg}})
}
