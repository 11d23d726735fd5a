package conversation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/wolfman30/leadflow/internal/leads"
)

const (
	RoleVisitor   = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in the visible message list.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Actions   []Action  `json:"actions,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn records one visitor message and how it was resolved.
type Turn struct {
	Input   string  `json:"input"`
	Step    Step    `json:"step"`
	Outcome Outcome `json:"outcome"`
	Tier    Tier    `json:"tier"`
}

// Session is the state of one widget conversation. It is created when the
// widget mounts, saved after every turn and deleted on teardown.
type Session struct {
	ID               string        `json:"id"`
	Step             Step          `json:"step"`
	Lead             leads.Lead    `json:"lead"`
	Messages         []ChatMessage `json:"messages"`
	Turns            []Turn        `json:"turns,omitempty"`
	UserMessageCount int           `json:"user_message_count"`
	Persisted        bool          `json:"persisted"`
	PersistFailed    bool          `json:"persist_failed,omitempty"`
	Escalated        bool          `json:"escalated,omitempty"`
	LeadID           string        `json:"lead_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// NewSession starts an idle session whose lead carries the given source tag.
func NewSession(sourceTag string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Step:      StepIdle,
		Lead:      leads.Lead{SessionID: id, Source: sourceTag},
		Messages:  []ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Session) appendMessage(role, content string, actions []Action) {
	s.Messages = append(s.Messages, ChatMessage{
		Role:      role,
		Content:   content,
		Actions:   actions,
		Timestamp: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
}

// Transcript renders the visible messages as plain text.
func (s *Session) Transcript() string {
	var out []byte
	for _, m := range s.Messages {
		out = fmt.Appendf(out, "[%s] %s: %s\n", m.Timestamp.Format(time.RFC3339), m.Role, m.Content)
	}
	return string(out)
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("conversation: generate session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
