package archive

import "time"

// TranscriptRecord is the document written to S3 for each finished or
// escalated chat.
type TranscriptRecord struct {
	Version      string    `json:"version"`
	SessionID    string    `json:"session_id"`
	LeadID       string    `json:"lead_id,omitempty"`
	Source       string    `json:"source,omitempty"`
	ContactHash  string    `json:"contact_hash,omitempty"`
	ArchivedAt   time.Time `json:"archived_at"`
	MessageCount int       `json:"message_count"`
	Outcome      string    `json:"outcome"`
	FinalStep    string    `json:"final_step"`
	Messages     []Message `json:"messages"`
}

// Message is a single transcript entry with PII removed.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	LeadID       string `json:"lead_id,omitempty"`
	S3Key        string `json:"s3_key"`
	Outcome      string `json:"outcome"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}

const (
	OutcomeCaptured  = "captured"
	OutcomeEscalated = "escalated"
)
