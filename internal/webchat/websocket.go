package webchat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/leadflow/internal/conversation"
)

// InboundMessage is what the widget sends over the socket.
type InboundMessage struct {
	Type string `json:"type"` // "start", "message", "ping"
	Text string `json:"text,omitempty"`
}

// OutboundMessage is what the socket sends to the widget.
type OutboundMessage struct {
	Type      string                `json:"type"` // "session", "history", "typing", "reply", "error", "pong"
	SessionID string                `json:"session_id,omitempty"`
	Text      string                `json:"text,omitempty"`
	Step      conversation.Step     `json:"step,omitempty"`
	Actions   []conversation.Action `json:"actions,omitempty"`
	Handled   *bool                 `json:"handled,omitempty"`
	Limited   bool                  `json:"limited,omitempty"`
	Completed bool                  `json:"completed,omitempty"`
	Messages  []HistoryMessage      `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history frames.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// HandleWebSocket serves GET /chat/ws?session=. Without a session parameter
// a new session is created.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	server := websocket.Server{
		Handshake: h.handshake,
		Handler: func(conn *websocket.Conn) {
			h.serveWS(conn, r)
		},
	}
	server.ServeHTTP(w, r)
}

func (h *Handler) handshake(cfg *websocket.Config, r *http.Request) error {
	if h.checkOrigin == nil {
		return nil
	}
	origin := r.Header.Get("Origin")
	if !h.checkOrigin(origin) {
		return fmt.Errorf("webchat: origin %q not allowed", origin)
	}
	return nil
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	defer conn.Close()
	ctx := r.Context()

	h.metrics.SocketOpened()
	defer h.metrics.SocketClosed()

	session, err := h.attach(ctx, strings.TrimSpace(r.URL.Query().Get("session")))
	if err != nil {
		_, msg := statusFor(err)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: msg})
		return
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: session.ID,
		Step:      session.Step,
		Completed: session.Step == conversation.StepCompleted,
	})
	if len(session.Messages) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: historyFrom(session.Messages)})
	}

	h.logger.Info("webchat: connection opened", "session_id", session.ID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", session.ID, "error", err)
			return
		}

		var out OutboundMessage
		switch msg.Type {
		case "ping":
			out = OutboundMessage{Type: "pong"}
		case "start":
			out = h.turnFrame(h.svc.Begin(ctx, session.ID))
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
			out = h.turnFrame(h.svc.Submit(ctx, session.ID, msg.Text))
		default:
			continue
		}
		if err := websocket.JSON.Send(conn, out); err != nil {
			h.logger.Debug("webchat: send failed", "session_id", session.ID, "error", err)
			return
		}
	}
}

func (h *Handler) attach(ctx context.Context, sessionID string) (*conversation.Session, error) {
	if sessionID == "" {
		return h.svc.StartSession(ctx)
	}
	return h.svc.History(ctx, sessionID)
}

func (h *Handler) turnFrame(result conversation.TurnResult, err error) OutboundMessage {
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
			h.logger.Error("webchat: turn failed", "error", err)
		}
		return OutboundMessage{Type: "error", Text: msg}
	}
	handled := result.Handled
	return OutboundMessage{
		Type:      "reply",
		Text:      result.Reply,
		Step:      result.Step,
		Actions:   result.Actions,
		Handled:   &handled,
		Limited:   result.Limited,
		Completed: result.Completed,
	}
}

func historyFrom(msgs []conversation.ChatMessage) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{Role: m.Role, Text: m.Content, Timestamp: timestamp(m.Timestamp)})
	}
	return out
}
