package conversation

import (
	"context"

	"github.com/wolfman30/leadflow/internal/leads"
)

// Action is a button rendered under an assistant reply.
type Action struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

const defaultClassification = "conversation"

// Outcome is what a resolver decided for one visitor message.
type Outcome struct {
	Reply          string     `json:"reply"`
	ShouldAdvance  bool       `json:"should_advance"`
	NextStep       Step       `json:"next_step,omitempty"`
	FieldUpdates   leads.Lead `json:"field_updates"`
	Classification string     `json:"classification,omitempty"`
	Actions        []Action   `json:"actions,omitempty"`
}

// Normalize enforces that NextStep is set exactly when the outcome advances,
// and that an advance never points backward from current.
func (o Outcome) Normalize(current Step) Outcome {
	if o.Classification == "" {
		o.Classification = defaultClassification
	}
	if !o.ShouldAdvance {
		o.NextStep = ""
		return o
	}
	if o.NextStep == "" {
		o.NextStep = current.Next()
	}
	if o.NextStep == current || !current.CanMoveTo(o.NextStep) {
		o.ShouldAdvance = false
		o.NextStep = ""
	}
	return o
}

// Tier names the resolver that produced an outcome.
type Tier string

const (
	TierLLM   Tier = "llm"
	TierRules Tier = "rules"
	TierNone  Tier = "none"
)

type ResolutionKind int

const (
	// Resolved carries an outcome the orchestrator should apply.
	Resolved ResolutionKind = iota
	// Deferred hands the same input to the next resolver in the chain.
	Deferred
)

// Resolution is the tagged result of a single resolver attempt.
type Resolution struct {
	Kind    ResolutionKind
	Tier    Tier
	Outcome Outcome
	Reason  string
}

func resolved(tier Tier, outcome Outcome) Resolution {
	return Resolution{Kind: Resolved, Tier: tier, Outcome: outcome}
}

func deferred(tier Tier, reason string) Resolution {
	return Resolution{Kind: Deferred, Tier: tier, Reason: reason}
}

// Resolver maps a visitor message at a step to an outcome, or defers.
type Resolver interface {
	Resolve(ctx context.Context, input string, step Step, lead leads.Lead) Resolution
}

// Chain tries resolvers in order and returns the first Resolved result.
// If every tier defers, the last deferral is returned.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, input string, step Step, lead leads.Lead) Resolution {
	last := deferred(TierNone, "no resolvers configured")
	for _, r := range c {
		if r == nil {
			continue
		}
		res := r.Resolve(ctx, input, step, lead)
		if res.Kind == Resolved {
			return res
		}
		last = res
	}
	return last
}
