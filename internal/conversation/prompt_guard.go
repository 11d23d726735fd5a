package conversation

import (
	"regexp"
	"strings"
)

// PromptGuardResult contains the result of a prompt injection scan.
type PromptGuardResult struct {
	Blocked bool
	// Score is a heuristic risk score (0.0 safe, 1.0 certain injection).
	Score   float64
	Reasons []string
}

type promptGuardPattern struct {
	re     *regexp.Regexp
	reason string
	weight float64
}

const blockThreshold = 0.7

var promptGuardPatterns = []promptGuardPattern{
	// instruction override
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?|directives?)`), "override:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "override:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+role\s*:|new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "override:new_role", 0.9},
	{regexp.MustCompile(`(?i)(pretend|imagine|suppose|assume)\s+(that\s+)?(you\s+)?(are|have|were|don'?t\s+have)\s+(no\s+)?(rules?|restrictions?|limits?|guidelines?|filters?)`), "override:pretend_no_rules", 0.9},
	{regexp.MustCompile(`(?i)bypass\s+(your\s+)?(safety|filters?|restrictions?|guidelines?|rules?)`), "override:bypass", 0.8},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|god\s*mode`), "override:jailbreak_keyword", 0.9},

	// exfiltration
	{regexp.MustCompile(`(?i)(reveal|show|print|output|repeat|tell\s+me|what\s+(is|are))\s+(your\s+)?(system\s+prompt|instructions?|initial\s+prompt|hidden\s+prompt|system\s+message)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(list|show|give|tell)\s+(me\s+)?(all\s+)?(the\s+)?(other\s+)?(leads?|customers?|visitors?|contacts?)('?s)?\s+(data|info|emails?|numbers?|records?)`), "exfiltration:lead_data", 0.7},
	{regexp.MustCompile(`(?i)\b(api|secret|aws|database|db|openai|gemini)\s*(key|token|secret|password|credential)s?\b`), "exfiltration:credentials", 0.8},

	// obfuscation
	{regexp.MustCompile(`(?i)base64\s*(encode|decode|:)|\\x[0-9a-fA-F]{2}`), "obfuscation:encoding", 0.5},
	{regexp.MustCompile(`<\s*(script|img|iframe|object|embed|svg|form)\b`), "obfuscation:html_injection", 0.6},

	// frame manipulation
	{regexp.MustCompile(`(?i)\[/?INST\]|\[/?SYS\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|assistant\|>`), "frame:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|assistant)\s*:`), "frame:role_markers", 0.7},
	{regexp.MustCompile(`(?i)the\s+real\s+(instructions?|task|prompt)\s+(is|starts?|begins?)`), "frame:real_instructions", 0.8},
}

// ScanForPromptInjection scores visitor text for attempts to steer the model.
func ScanForPromptInjection(message string) PromptGuardResult {
	if strings.TrimSpace(message) == "" {
		return PromptGuardResult{}
	}

	var reasons []string
	maxWeight := 0.0
	for _, p := range promptGuardPatterns {
		if p.re.MatchString(message) {
			reasons = append(reasons, p.reason)
			if p.weight > maxWeight {
				maxWeight = p.weight
			}
		}
	}

	// Each additional signal adds 0.1, capped at 1.0.
	score := maxWeight
	if len(reasons) > 1 {
		score = maxWeight + float64(len(reasons)-1)*0.1
		if score > 1.0 {
			score = 1.0
		}
	}
	return PromptGuardResult{
		Blocked: score >= blockThreshold,
		Score:   score,
		Reasons: reasons,
	}
}
