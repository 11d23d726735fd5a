package conversation

import (
	"regexp"
	"strings"
)

// Moderation reasons, also used as metric labels and audit reasons.
const (
	ReasonBlockedTerm     = "blocked_term"
	ReasonPromptInjection = "prompt_injection"
	ReasonSSN             = "ssn"
	ReasonCardNumber      = "card_number"
	ReasonPhoneOutOfStep  = "phone_out_of_step"
)

var moderationReplies = map[string]string{
	ReasonBlockedTerm:     "Let's keep things professional so I can help. Could you rephrase that?",
	ReasonPromptInjection: "I'm here to connect you with our team about automating your business. Let's pick up where we left off.",
	ReasonSSN:             "For your security, please don't share sensitive details like Social Security numbers in this chat.",
	ReasonCardNumber:      "For your security, please don't share card numbers in this chat. We never take payments here.",
	ReasonPhoneOutOfStep:  "Please hold off on sharing a phone number for now. I'll ask for the best number to reach you in a moment.",
}

var defaultBlockedTerms = []string{
	"fuck",
	"shit",
	"bitch",
	"asshole",
	"cunt",
	"dickhead",
	"motherfucker",
}

// ModerationResult is the verdict for one visitor message.
type ModerationResult struct {
	Blocked bool
	Reason  string
	Reply   string
}

// Moderator screens visitor text before any resolver sees it.
type Moderator struct {
	blockedRE *regexp.Regexp
}

// NewModerator builds a moderator using the default term list plus extra terms.
func NewModerator(extraTerms ...string) *Moderator {
	terms := make([]string, 0, len(defaultBlockedTerms)+len(extraTerms))
	for _, t := range append(append([]string{}, defaultBlockedTerms...), extraTerms...) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, regexp.QuoteMeta(t))
		}
	}
	m := &Moderator{}
	if len(terms) > 0 {
		m.blockedRE = regexp.MustCompile(`(?i)\b(` + strings.Join(terms, "|") + `)\b`)
	}
	return m
}

// Check runs the checks in a fixed order and stops at the first hit.
// Phone numbers are allowed only while the phone step is active.
func (m *Moderator) Check(input string, step Step) ModerationResult {
	if m == nil {
		return ModerationResult{}
	}
	switch {
	case m.blockedRE != nil && m.blockedRE.MatchString(input):
		return block(ReasonBlockedTerm)
	case ScanForPromptInjection(input).Blocked:
		return block(ReasonPromptInjection)
	case ContainsSSN(input):
		return block(ReasonSSN)
	case ContainsPAN(input):
		return block(ReasonCardNumber)
	case step != StepAwaitingPhone && ContainsPhone(input):
		return block(ReasonPhoneOutOfStep)
	}
	return ModerationResult{}
}

func block(reason string) ModerationResult {
	return ModerationResult{Blocked: true, Reason: reason, Reply: moderationReplies[reason]}
}
