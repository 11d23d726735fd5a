package events

import (
	"context"

	"github.com/wolfman30/leadflow/internal/conversation"
)

// Publisher delivers envelopes to a transport.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// LeadEventHook publishes orchestrator events as session-keyed envelopes.
type LeadEventHook struct {
	publisher Publisher
}

func NewLeadEventHook(publisher Publisher) *LeadEventHook {
	if publisher == nil {
		panic("events: publisher required")
	}
	return &LeadEventHook{publisher: publisher}
}

func (h *LeadEventHook) Name() string { return "sqs" }

func (h *LeadEventHook) Handle(ctx context.Context, event conversation.Event) error {
	evt := toLeadEvent(event)
	if evt == nil {
		return nil
	}
	env, err := NewEnvelope(evt)
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, env)
}

func toLeadEvent(event conversation.Event) LeadEvent {
	now := nowFunc().UTC()
	switch event.Kind {
	case conversation.EventLeadCaptured:
		if event.Lead == nil {
			return nil
		}
		l := event.Lead
		captured := l.CreatedAt
		if captured.IsZero() {
			captured = now
		}
		return LeadCapturedV1{
			LeadID:         l.ID,
			SessionID:      event.SessionID,
			Source:         l.Source,
			FirstName:      l.FirstName,
			LastName:       l.LastName,
			Email:          l.Email,
			Phone:          l.Phone,
			CompanyName:    l.CompanyName,
			IndustrySector: l.IndustrySector,
			CompanySize:    l.CompanySize,
			PainPoints:     l.PainPoints,
			BudgetTimeline: l.BudgetTimeline,
			CapturedAt:     captured,
		}
	case conversation.EventEscalated:
		return SessionEscalatedV1{
			SessionID:   event.SessionID,
			Step:        event.Step.String(),
			EscalatedAt: now,
		}
	case conversation.EventPersistFailed:
		out := LeadPersistFailedV1{SessionID: event.SessionID, FailedAt: now}
		if event.Lead != nil {
			out.Source = event.Lead.Source
			out.Email = event.Lead.Email
			out.Phone = event.Lead.Phone
		}
		return out
	default:
		return nil
	}
}
