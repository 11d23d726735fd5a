package conversation

import (
	"regexp"
	"strings"
)

var (
	ssnRE          = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	panCandidateRE = regexp.MustCompile(`(?:\d[ -]?){13,19}`)
	phoneShapeRE   = regexp.MustCompile(`(?:\+?\b1[\s.-]?)?(?:\(\d{3}\)|\b\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`)
)

// ContainsSSN reports a US social security number shape.
func ContainsSSN(text string) bool {
	return ssnRE.MatchString(text)
}

// ContainsPAN reports a 13-19 digit sequence that passes the Luhn check.
func ContainsPAN(text string) bool {
	for _, candidate := range panCandidateRE.FindAllString(text, -1) {
		digits := digitsOnly(candidate)
		if len(digits) >= 13 && len(digits) <= 19 && luhnValid(digits) {
			return true
		}
	}
	return false
}

// ContainsPhone reports a North American phone number shape.
func ContainsPhone(text string) bool {
	return phoneShapeRE.MatchString(text)
}

// RedactPII masks SSNs, card numbers, phone numbers and email addresses so
// the text is safe to log or archive.
func RedactPII(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	out := ssnRE.ReplaceAllString(text, "[REDACTED]")
	out = panCandidateRE.ReplaceAllStringFunc(out, func(candidate string) string {
		digits := digitsOnly(candidate)
		if len(digits) < 13 || len(digits) > 19 || !luhnValid(digits) {
			return candidate
		}
		return "[REDACTED_CARD_" + digits[len(digits)-4:] + "]"
	})
	out = phoneShapeRE.ReplaceAllString(out, "[REDACTED]")
	out = emailInTextRE.ReplaceAllString(out, "[REDACTED]")
	return out
}

var emailInTextRE = regexp.MustCompile(`[^\s@]+@[^\s@]+\.[^\s@]{2,}`)

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhnValid(digits string) bool {
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if alt {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alt = !alt
	}
	return sum%10 == 0
}
