package compliance

import (
	"context"
	"encoding/json"

	"github.com/wolfman30/leadflow/internal/conversation"
)

// AuditHook records orchestrator events in the audit trail.
type AuditHook struct {
	audit *AuditService
}

func NewAuditHook(audit *AuditService) *AuditHook {
	if audit == nil {
		panic("compliance: audit service required")
	}
	return &AuditHook{audit: audit}
}

func (h *AuditHook) Name() string { return "audit" }

func (h *AuditHook) Handle(ctx context.Context, event conversation.Event) error {
	record := AuditEvent{
		SessionID: event.SessionID,
		Step:      event.Step.String(),
		Reason:    event.Reason,
	}
	switch event.Kind {
	case conversation.EventContentBlocked:
		record.EventType = blockedEventType(event.Reason)
	case conversation.EventEscalated:
		record.EventType = EventSessionEscalated
	case conversation.EventPersistFailed:
		record.EventType = EventPersistFailed
	case conversation.EventLeadCaptured:
		record.EventType = EventLeadCaptured
		if event.Lead != nil {
			record.LeadID = event.Lead.ID
			details, _ := json.Marshal(map[string]any{
				"source":      event.Lead.Source,
				"has_email":   event.Lead.Email != "",
				"has_phone":   event.Lead.Phone != "",
				"message_cnt": len(event.Transcript),
			})
			record.Details = details
		}
	default:
		return nil
	}
	return h.audit.LogEvent(ctx, record)
}

func blockedEventType(reason string) AuditEventType {
	switch reason {
	case conversation.ReasonPromptInjection:
		return EventPromptInjection
	case conversation.ReasonSSN, conversation.ReasonCardNumber:
		return EventPIIDetected
	default:
		return EventContentBlocked
	}
}
