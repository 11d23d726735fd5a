package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/wolfman30/leadflow/internal/leads"
)

// stepRule inspects the visitor's input at one step. It returns the field
// updates to merge and whether the answer was accepted.
type stepRule func(input string, lead leads.Lead) (leads.Lead, bool)

var (
	discoveryCallRE = regexp.MustCompile(`(?i)\b(call|discovery|meeting)\b`)
	workflowAuditRE = regexp.MustCompile(`(?i)\b(audit|workflow|assessment)\b`)
	bothRE          = regexp.MustCompile(`(?i)\bboth\b`)
	socialLinkRE    = regexp.MustCompile(`(?i)(linkedin\.com|twitter\.com|x\.com/|instagram\.com|facebook\.com)`)
)

const (
	noteDiscoveryCall = "Interested in: discovery call"
	noteWorkflowAudit = "Interested in: workflow audit"
	noteBoth          = "Interested in: discovery call and workflow audit"
)

// stepRules is the single transition table for the deterministic tier. Every
// capture step has exactly one entry; accepted answers move to Step.Next().
var stepRules = map[Step]stepRule{
	StepAwaitingName:    captureName,
	StepAwaitingCompany: freeText(2, func(l *leads.Lead, v string) { l.CompanyName = v }),
	StepAwaitingRole:    freeText(2, func(l *leads.Lead, v string) { l.RoleTitle = v }),
	StepAwaitingIndustry: freeText(2, func(l *leads.Lead, v string) {
		l.IndustrySector = v
	}),
	StepAwaitingCompanySize:    freeText(2, func(l *leads.Lead, v string) { l.CompanySize = v }),
	StepAwaitingLocation:       freeText(2, func(l *leads.Lead, v string) { l.Location = v }),
	StepAwaitingWebsite:        captureWebsite,
	StepAwaitingNeeds:          freeText(5, func(l *leads.Lead, v string) { l.PainPoints = v }),
	StepAwaitingBudget:         freeText(1, func(l *leads.Lead, v string) { l.BudgetTimeline = v }),
	StepAwaitingContactChoice:  captureContactChoice,
	StepAwaitingEmail:          captureEmail,
	StepAwaitingPhone:          capturePhone,
	StepAwaitingAdditionalInfo: captureAdditionalInfo,
}

// freeText accepts answers longer than minLen runes that are not filler.
func freeText(minLen int, set func(*leads.Lead, string)) stepRule {
	return func(input string, _ leads.Lead) (leads.Lead, bool) {
		value := strings.TrimSpace(input)
		if runeLen(value) <= minLen || isFiller(value) {
			return leads.Lead{}, false
		}
		var update leads.Lead
		set(&update, value)
		return update, true
	}
}

func captureName(input string, _ leads.Lead) (leads.Lead, bool) {
	value := strings.TrimSpace(input)
	if runeLen(value) <= 1 || isFiller(value) || isGreeting(value) {
		return leads.Lead{}, false
	}
	parts := strings.Fields(value)
	update := leads.Lead{FirstName: parts[0]}
	if len(parts) > 1 {
		update.LastName = strings.Join(parts[1:], " ")
	}
	return update, true
}

func captureWebsite(input string, _ leads.Lead) (leads.Lead, bool) {
	value := strings.TrimSpace(input)
	if runeLen(value) <= 2 || isFiller(value) {
		return leads.Lead{}, false
	}
	update := leads.Lead{WebsiteURL: value}
	if socialLinkRE.MatchString(value) {
		update.SocialLinks = value
	}
	return update, true
}

func captureContactChoice(input string, lead leads.Lead) (leads.Lead, bool) {
	wantsCall := discoveryCallRE.MatchString(input)
	wantsAudit := workflowAuditRE.MatchString(input)

	var note string
	switch {
	case bothRE.MatchString(input) || (wantsCall && wantsAudit):
		note = noteBoth
	case wantsCall:
		note = noteDiscoveryCall
	case wantsAudit:
		note = noteWorkflowAudit
	default:
		return leads.Lead{}, false
	}
	return leads.Lead{Notes: lead.WithNote(note)}, true
}

func captureEmail(input string, _ leads.Lead) (leads.Lead, bool) {
	if !IsValidEmail(input) {
		return leads.Lead{}, false
	}
	return leads.Lead{Email: strings.TrimSpace(input)}, true
}

func capturePhone(input string, _ leads.Lead) (leads.Lead, bool) {
	if IsValidPhone(input) {
		return leads.Lead{Phone: NormalizePhone(input)}, true
	}
	if isPhoneSkip(input) {
		return leads.Lead{}, true
	}
	return leads.Lead{}, false
}

func captureAdditionalInfo(input string, lead leads.Lead) (leads.Lead, bool) {
	return leads.Lead{Notes: lead.WithNote(input)}, true
}

// RuleResolver is the deterministic tier. It never defers and never performs I/O.
// It does not skip steps whose fields are already populated.
type RuleResolver struct {
	schedulingURL   string
	caseStudiesPath string
}

func NewRuleResolver(schedulingURL, caseStudiesPath string) *RuleResolver {
	return &RuleResolver{schedulingURL: schedulingURL, caseStudiesPath: caseStudiesPath}
}

func (r *RuleResolver) Resolve(ctx context.Context, input string, step Step, lead leads.Lead) Resolution {
	rule, ok := stepRules[step]
	if !ok {
		return resolved(TierRules, Outcome{Reply: genericReply, Classification: defaultClassification})
	}

	update, accepted := rule(input, lead)
	if !accepted {
		return resolved(TierRules, Outcome{
			Reply:          repromptFor(step),
			Classification: "reprompt",
		})
	}

	next := step.Next()
	outcome := Outcome{
		ShouldAdvance:  true,
		NextStep:       next,
		FieldUpdates:   update,
		Classification: "lead_capture",
	}
	if next == StepCompleted {
		outcome.Reply = completionReply
		outcome.Actions = completionActions(r.schedulingURL, r.caseStudiesPath)
	} else {
		outcome.Reply = acknowledge(step, update) + questionFor(next)
	}
	return resolved(TierRules, outcome)
}

// completionActions are the two buttons shown when the capture completes.
func completionActions(schedulingURL, caseStudiesPath string) []Action {
	return []Action{
		{Label: "Book a Call", URL: schedulingURL},
		{Label: "See Case Studies", URL: caseStudiesPath},
	}
}

func acknowledge(step Step, update leads.Lead) string {
	switch step {
	case StepAwaitingName:
		return "Nice to meet you, " + update.FirstName + "! "
	case StepAwaitingNeeds:
		return "That's a common one, and very automatable. "
	case StepAwaitingEmail:
		return "Got it. "
	default:
		return "Thanks! "
	}
}
