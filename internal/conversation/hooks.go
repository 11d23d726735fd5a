package conversation

import (
	"context"

	"github.com/wolfman30/leadflow/internal/leads"
)

type EventKind string

const (
	EventLeadCaptured   EventKind = "lead.captured"
	EventContentBlocked EventKind = "content.blocked"
	EventEscalated      EventKind = "session.escalated"
	EventPersistFailed  EventKind = "lead.persist_failed"
)

// Event is emitted by the orchestrator after a notable turn.
type Event struct {
	Kind       EventKind
	SessionID  string
	Step       Step
	Reason     string
	Lead       *leads.Lead
	Transcript []ChatMessage
}

// Hook receives orchestrator events. Hook failures are logged and never
// change the visitor-facing reply.
type Hook interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc struct {
	HookName string
	Fn       func(ctx context.Context, event Event) error
}

func (h HookFunc) Name() string { return h.HookName }

func (h HookFunc) Handle(ctx context.Context, event Event) error {
	return h.Fn(ctx, event)
}
