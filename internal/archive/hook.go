package archive

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/wolfman30/leadflow/internal/conversation"
)

// TranscriptHook archives the transcript of captured and escalated sessions.
type TranscriptHook struct {
	store *Store
}

func NewTranscriptHook(store *Store) *TranscriptHook {
	if store == nil {
		panic("archive: store required")
	}
	return &TranscriptHook{store: store}
}

func (h *TranscriptHook) Name() string { return "s3_transcript" }

func (h *TranscriptHook) Handle(ctx context.Context, event conversation.Event) error {
	var outcome string
	switch event.Kind {
	case conversation.EventLeadCaptured:
		outcome = OutcomeCaptured
	case conversation.EventEscalated:
		outcome = OutcomeEscalated
	default:
		return nil
	}
	return h.store.ArchiveTranscript(ctx, BuildRecord(event, outcome))
}

// BuildRecord converts an orchestrator event into a redacted transcript record.
func BuildRecord(event conversation.Event, outcome string) *TranscriptRecord {
	record := &TranscriptRecord{
		Version:      "1.0",
		SessionID:    event.SessionID,
		MessageCount: len(event.Transcript),
		Outcome:      outcome,
		FinalStep:    event.Step.String(),
		Messages:     make([]Message, 0, len(event.Transcript)),
	}
	if event.Lead != nil {
		record.LeadID = event.Lead.ID
		record.Source = event.Lead.Source
		record.ContactHash = HashContact(event.Lead.Email, event.Lead.Phone)
	}
	for _, msg := range event.Transcript {
		record.Messages = append(record.Messages, Message{
			Role:      msg.Role,
			Content:   conversation.RedactPII(msg.Content),
			Timestamp: msg.Timestamp,
		})
	}
	return record
}

// HashContact returns a stable hash of the lead's contact details so
// transcripts can be joined to a lead without storing the raw values.
func HashContact(email, phone string) string {
	key := strings.ToLower(strings.TrimSpace(email)) + "|" + strings.TrimSpace(phone)
	if key == "|" {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
