package conversation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`(?i)^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	phoneSkipRE  = regexp.MustCompile(`(?i)\b(no|skip)\b`)
)

var disposableEmailDomains = []string{
	"mailinator",
	"guerrillamail",
	"10minutemail",
	"tempmail",
	"yopmail",
}

// IsValidEmail checks the address shape and rejects throwaway inbox providers.
func IsValidEmail(raw string) bool {
	email := strings.TrimSpace(raw)
	if !emailPattern.MatchString(email) {
		return false
	}
	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	for _, d := range disposableEmailDomains {
		if strings.Contains(domain, d) {
			return false
		}
	}
	return true
}

// NormalizePhone keeps digits and a leading plus sign.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(trimmed))
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidPhone accepts E.164-like numbers of 8 to 15 digits.
func IsValidPhone(raw string) bool {
	return phonePattern.MatchString(NormalizePhone(raw))
}

func isPhoneSkip(input string) bool {
	return phoneSkipRE.MatchString(input)
}

var fillerWords = map[string]struct{}{
	"yes":      {},
	"no":       {},
	"ok":       {},
	"maybe":    {},
	"not sure": {},
}

var greetingWords = map[string]struct{}{
	"hi":               {},
	"hello":            {},
	"hey":              {},
	"nice":             {},
	"nice to meet you": {},
}

func normalizeAnswer(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	return strings.TrimRight(s, ".!?, ")
}

func isFiller(input string) bool {
	_, ok := fillerWords[normalizeAnswer(input)]
	return ok
}

func isGreeting(input string) bool {
	_, ok := greetingWords[normalizeAnswer(input)]
	return ok
}

func runeLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}
