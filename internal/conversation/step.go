package conversation

import "strings"

// Step is a position in the lead-capture sequence.
type Step string

const (
	StepIdle                   Step = "idle"
	StepAwaitingName           Step = "awaiting_name"
	StepAwaitingCompany        Step = "awaiting_company"
	StepAwaitingRole           Step = "awaiting_role"
	StepAwaitingIndustry       Step = "awaiting_industry"
	StepAwaitingCompanySize    Step = "awaiting_company_size"
	StepAwaitingLocation       Step = "awaiting_location"
	StepAwaitingWebsite        Step = "awaiting_website"
	StepAwaitingNeeds          Step = "awaiting_needs"
	StepAwaitingBudget         Step = "awaiting_budget"
	StepAwaitingContactChoice  Step = "awaiting_contact_choice"
	StepAwaitingEmail          Step = "awaiting_email"
	StepAwaitingPhone          Step = "awaiting_phone"
	StepAwaitingAdditionalInfo Step = "awaiting_additional_info"
	StepCompleted              Step = "completed"
)

// stepOrder is the only sequence a session may walk. Index order is the
// forward direction.
var stepOrder = []Step{
	StepIdle,
	StepAwaitingName,
	StepAwaitingCompany,
	StepAwaitingRole,
	StepAwaitingIndustry,
	StepAwaitingCompanySize,
	StepAwaitingLocation,
	StepAwaitingWebsite,
	StepAwaitingNeeds,
	StepAwaitingBudget,
	StepAwaitingContactChoice,
	StepAwaitingEmail,
	StepAwaitingPhone,
	StepAwaitingAdditionalInfo,
	StepCompleted,
}

var stepIndex = func() map[Step]int {
	m := make(map[Step]int, len(stepOrder))
	for i, s := range stepOrder {
		m[s] = i
	}
	return m
}()

// Steps returns the full ordered sequence.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// ParseStep maps a step name to a Step.
func ParseStep(raw string) (Step, bool) {
	s := Step(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := stepIndex[s]
	return s, ok
}

func (s Step) String() string { return string(s) }

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	_, ok := stepIndex[s]
	return ok
}

// IsCapture reports whether s collects a field from the visitor.
func (s Step) IsCapture() bool {
	return s.Valid() && s != StepIdle && s != StepCompleted
}

// Next returns the step that follows s. Completed and unknown steps return themselves.
func (s Step) Next() Step {
	i, ok := stepIndex[s]
	if !ok || i == len(stepOrder)-1 {
		return s
	}
	return stepOrder[i+1]
}

// CanMoveTo reports whether next is s itself or a later step.
func (s Step) CanMoveTo(next Step) bool {
	from, ok := stepIndex[s]
	if !ok {
		return false
	}
	to, ok := stepIndex[next]
	if !ok {
		return false
	}
	return to >= from
}
