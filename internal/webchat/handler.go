// Package webchat exposes the conversation service to the browser widget over
// REST and WebSocket.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/leadflow/internal/conversation"
	"github.com/wolfman30/leadflow/internal/observability/metrics"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// ChatService is the conversation surface the widget drives.
type ChatService interface {
	StartSession(ctx context.Context) (*conversation.Session, error)
	Begin(ctx context.Context, sessionID string) (conversation.TurnResult, error)
	Submit(ctx context.Context, sessionID, text string) (conversation.TurnResult, error)
	History(ctx context.Context, sessionID string) (*conversation.Session, error)
	End(ctx context.Context, sessionID string) error
}

// Handler serves the chat endpoints.
type Handler struct {
	svc         ChatService
	metrics     *metrics.ConversationMetrics
	logger      *logging.Logger
	checkOrigin func(origin string) bool
}

// Option configures a Handler.
type Option func(*Handler)

func WithMetrics(m *metrics.ConversationMetrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithOriginCheck restricts websocket handshakes to origins accepted by fn.
func WithOriginCheck(fn func(origin string) bool) Option {
	return func(h *Handler) { h.checkOrigin = fn }
}

// NewHandler creates a web chat handler.
func NewHandler(svc ChatService, logger *logging.Logger, opts ...Option) *Handler {
	if svc == nil {
		panic("webchat: chat service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MessageRequest is the body of POST /chat/sessions/{sessionID}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// SessionResponse describes a session and its visible messages.
type SessionResponse struct {
	SessionID string                     `json:"session_id"`
	Step      conversation.Step          `json:"step"`
	Completed bool                       `json:"completed"`
	Messages  []conversation.ChatMessage `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func sessionResponse(s *conversation.Session) SessionResponse {
	msgs := s.Messages
	if msgs == nil {
		msgs = []conversation.ChatMessage{}
	}
	return SessionResponse{
		SessionID: s.ID,
		Step:      s.Step,
		Completed: s.Step == conversation.StepCompleted,
		Messages:  msgs,
	}
}

// CreateSession handles POST /chat/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.StartSession(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(session))
}

// StartSession handles POST /chat/sessions/{sessionID}/start.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Begin(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostMessage handles POST /chat/sessions/{sessionID}/messages.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := h.svc.Submit(r.Context(), chi.URLParam(r, "sessionID"), req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetSession handles GET /chat/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(session))
}

// DeleteSession handles DELETE /chat/sessions/{sessionID}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.End(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts the REST and websocket endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Post("/sessions/{sessionID}/start", h.StartSession)
	r.Post("/sessions/{sessionID}/messages", h.PostMessage)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.Delete("/sessions/{sessionID}", h.DeleteSession)
	r.Get("/ws", h.HandleWebSocket)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("webchat: request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, conversation.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, conversation.ErrTurnInFlight):
		return http.StatusConflict, "a reply is still being prepared"
	case errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest, "text is required"
	default:
		return http.StatusInternalServerError, "something went wrong, please try again"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
