package leads

import (
	"strings"
	"time"
)

// Lead is the contact and qualification record captured by the chat widget.
type Lead struct {
	ID             string    `json:"id,omitempty" dynamodbav:"id" firestore:"id"`
	SessionID      string    `json:"session_id,omitempty" dynamodbav:"session_id,omitempty" firestore:"session_id,omitempty"`
	FirstName      string    `json:"first_name,omitempty" dynamodbav:"first_name,omitempty" firestore:"first_name,omitempty"`
	LastName       string    `json:"last_name,omitempty" dynamodbav:"last_name,omitempty" firestore:"last_name,omitempty"`
	Email          string    `json:"email,omitempty" dynamodbav:"email,omitempty" firestore:"email,omitempty"`
	Phone          string    `json:"phone,omitempty" dynamodbav:"phone,omitempty" firestore:"phone,omitempty"`
	CompanyName    string    `json:"company_name,omitempty" dynamodbav:"company_name,omitempty" firestore:"company_name,omitempty"`
	IndustrySector string    `json:"industry_sector,omitempty" dynamodbav:"industry_sector,omitempty" firestore:"industry_sector,omitempty"`
	Location       string    `json:"location,omitempty" dynamodbav:"location,omitempty" firestore:"location,omitempty"`
	CompanySize    string    `json:"company_size,omitempty" dynamodbav:"company_size,omitempty" firestore:"company_size,omitempty"`
	WebsiteURL     string    `json:"website_url,omitempty" dynamodbav:"website_url,omitempty" firestore:"website_url,omitempty"`
	RoleTitle      string    `json:"role_title,omitempty" dynamodbav:"role_title,omitempty" firestore:"role_title,omitempty"`
	SocialLinks    string    `json:"social_links,omitempty" dynamodbav:"social_links,omitempty" firestore:"social_links,omitempty"`
	PainPoints     string    `json:"pain_points,omitempty" dynamodbav:"pain_points,omitempty" firestore:"pain_points,omitempty"`
	BudgetTimeline string    `json:"budget_timeline,omitempty" dynamodbav:"budget_timeline,omitempty" firestore:"budget_timeline,omitempty"`
	Notes          string    `json:"notes,omitempty" dynamodbav:"notes,omitempty" firestore:"notes,omitempty"`
	Source         string    `json:"source,omitempty" dynamodbav:"source" firestore:"source"`
	CreatedAt      time.Time `json:"created_at,omitempty" dynamodbav:"created_at" firestore:"created_at"`
}

// Merge copies every non-empty captured field of update onto l.
// Empty values never clear what is already there. Identity fields
// (ID, SessionID, Source, CreatedAt) are not touched.
func (l *Lead) Merge(update Lead) {
	mergeField(&l.FirstName, update.FirstName)
	mergeField(&l.LastName, update.LastName)
	mergeField(&l.Email, update.Email)
	mergeField(&l.Phone, update.Phone)
	mergeField(&l.CompanyName, update.CompanyName)
	mergeField(&l.IndustrySector, update.IndustrySector)
	mergeField(&l.Location, update.Location)
	mergeField(&l.CompanySize, update.CompanySize)
	mergeField(&l.WebsiteURL, update.WebsiteURL)
	mergeField(&l.RoleTitle, update.RoleTitle)
	mergeField(&l.SocialLinks, update.SocialLinks)
	mergeField(&l.PainPoints, update.PainPoints)
	mergeField(&l.BudgetTimeline, update.BudgetTimeline)
	mergeField(&l.Notes, update.Notes)
}

func mergeField(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

// WithNote returns the notes field with note appended on its own line.
func (l Lead) WithNote(note string) string {
	note = strings.TrimSpace(note)
	existing := strings.TrimSpace(l.Notes)
	switch {
	case note == "":
		return existing
	case existing == "":
		return note
	default:
		return existing + "\n" + note
	}
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// IsEmpty reports whether no captured field is set.
func (l Lead) IsEmpty() bool {
	merged := Lead{}
	merged.Merge(l)
	return merged == Lead{}
}

// Validate checks the minimum a lead needs before it is written.
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Source) == "" {
		return ErrMissingSource
	}
	if strings.TrimSpace(l.Email) == "" && strings.TrimSpace(l.Phone) == "" {
		return ErrMissingContact
	}
	return nil
}

// ListFilter narrows admin listings.
type ListFilter struct {
	Limit  int
	Offset int
	Source string
}
