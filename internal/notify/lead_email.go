package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/leadflow/internal/leads"
)

// LeadEmail is the sales-inbox message for one captured lead.
type LeadEmail struct {
	LeadID  string
	To      string
	Subject string
	Text    string
	HTML    string
	// ReplyTo is the visitor's address so sales can answer directly.
	ReplyTo string
}

type leadField struct {
	label string
	value string
}

func leadFields(lead *leads.Lead, name string) []leadField {
	fields := []leadField{
		{"Name", name},
		{"Email", lead.Email},
		{"Phone", lead.Phone},
		{"Company", lead.CompanyName},
		{"Role", lead.RoleTitle},
		{"Industry", lead.IndustrySector},
		{"Company size", lead.CompanySize},
		{"Location", lead.Location},
		{"Website", lead.WebsiteURL},
		{"Social", lead.SocialLinks},
		{"Needs", lead.PainPoints},
		{"Budget / timeline", lead.BudgetTimeline},
		{"Notes", lead.Notes},
		{"Source", lead.Source},
		{"Lead ID", lead.ID},
	}
	out := fields[:0]
	for _, f := range fields {
		if f.value = strings.TrimSpace(f.value); f.value != "" {
			out = append(out, f)
		}
	}
	return out
}

// NewLeadEmail renders the summary of a captured lead in text and HTML.
func NewLeadEmail(to string, lead *leads.Lead) LeadEmail {
	name := lead.FullName()
	if name == "" {
		name = "New visitor"
	}
	subject := fmt.Sprintf("New lead: %s", name)
	if lead.CompanyName != "" {
		subject = fmt.Sprintf("New lead: %s (%s)", name, lead.CompanyName)
	}

	fields := leadFields(lead, name)

	var text strings.Builder
	text.WriteString("A new lead finished the website chat.\n\n")
	for _, f := range fields {
		fmt.Fprintf(&text, "%s: %s\n", f.label, f.value)
	}

	var body strings.Builder
	body.WriteString("<p>A new lead finished the website chat.</p>\n<table>\n")
	for _, f := range fields {
		fmt.Fprintf(&body, "<tr><th align=\"left\">%s</th><td>%s</td></tr>\n", f.label, html.EscapeString(f.value))
	}
	body.WriteString("</table>\n")

	return LeadEmail{
		LeadID:  lead.ID,
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    body.String(),
		ReplyTo: lead.Email,
	}
}
