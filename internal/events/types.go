package events

import "time"

// LeadCapturedV1 is published once a lead record has been written.
type LeadCapturedV1 struct {
	LeadID         string    `json:"lead_id"`
	SessionID      string    `json:"session_id"`
	Source         string    `json:"source"`
	FirstName      string    `json:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	CompanyName    string    `json:"company_name,omitempty"`
	IndustrySector string    `json:"industry_sector,omitempty"`
	CompanySize    string    `json:"company_size,omitempty"`
	PainPoints     string    `json:"pain_points,omitempty"`
	BudgetTimeline string    `json:"budget_timeline,omitempty"`
	CapturedAt     time.Time `json:"captured_at"`
}

func (LeadCapturedV1) EventType() string { return "lead.captured.v1" }
func (e LeadCapturedV1) Session() string { return e.SessionID }
func (LeadCapturedV1) oncePerSession()   {}

// SessionEscalatedV1 is published when a session hits the message ceiling.
type SessionEscalatedV1 struct {
	SessionID   string    `json:"session_id"`
	Step        string    `json:"step"`
	EscalatedAt time.Time `json:"escalated_at"`
}

func (SessionEscalatedV1) EventType() string { return "session.escalated.v1" }
func (e SessionEscalatedV1) Session() string { return e.SessionID }
func (SessionEscalatedV1) oncePerSession()   {}

// LeadPersistFailedV1 lets operators recover a lead whose write failed.
// A session can fail more than once.
type LeadPersistFailedV1 struct {
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	FailedAt  time.Time `json:"failed_at"`
}

func (LeadPersistFailedV1) EventType() string { return "lead.persist_failed.v1" }
func (e LeadPersistFailedV1) Session() string { return e.SessionID }
