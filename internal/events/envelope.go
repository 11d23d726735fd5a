// Package events publishes versioned lead lifecycle events to downstream consumers.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadEvent is a versioned lifecycle event of one chat session.
type LeadEvent interface {
	EventType() string
	Session() string
}

// oncePerSession marks events a session emits at most once. Their
// envelopes get a stable ID so consumers can drop redeliveries.
type oncePerSession interface {
	oncePerSession()
}

// Envelope is the message body consumers receive.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	SessionID  string          `json:"session_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

var (
	errNilEvent       = errors.New("events: lead event required")
	errMissingSession = errors.New("events: session id is required")
	eventNamespace    = uuid.MustParse("0b7c3e52-9a1d-5f64-8e2b-4c6d1a7f3e90")
	nowFunc           = time.Now
)

// NewEnvelope wraps evt for publishing.
func NewEnvelope(evt LeadEvent) (Envelope, error) {
	if evt == nil {
		return Envelope{}, errNilEvent
	}
	sessionID := strings.TrimSpace(evt.Session())
	if sessionID == "" {
		return Envelope{}, errMissingSession
	}
	eventType := strings.TrimSpace(evt.EventType())
	if eventType == "" {
		return Envelope{}, fmt.Errorf("events: event type missing for session %s", sessionID)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", eventType, err)
	}

	id := uuid.New()
	if _, ok := evt.(oncePerSession); ok {
		id = uuid.NewSHA1(eventNamespace, []byte(eventType+"/"+sessionID))
	}
	return Envelope{
		EventID:    id,
		EventType:  eventType,
		SessionID:  sessionID,
		OccurredAt: nowFunc().UTC().Truncate(time.Microsecond),
		Payload:    payload,
	}, nil
}
