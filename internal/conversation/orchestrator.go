package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/internal/observability/metrics"
	"github.com/wolfman30/leadflow/pkg/logging"
)

var turnTracer = otel.Tracer("leadflow.internal.conversation.turn")

const (
	defaultMaxMessages = 20
	hookTimeout        = 5 * time.Second
	welcomeMessage     = "Hi there! I can connect you with our automation team in a couple of minutes. Ready to get started?"
)

// OrchestratorConfig holds the fixed copy and limits of a deployment.
type OrchestratorConfig struct {
	MaxMessages     int
	SchedulingURL   string
	CaseStudiesPath string
	FallbackContact string
}

// TurnResult is what the widget renders after a visitor message.
type TurnResult struct {
	Reply     string   `json:"reply"`
	Actions   []Action `json:"actions,omitempty"`
	Step      Step     `json:"step"`
	Handled   bool     `json:"handled"`
	Limited   bool     `json:"limited,omitempty"`
	Blocked   bool     `json:"blocked,omitempty"`
	Completed bool     `json:"completed,omitempty"`
	Tier      Tier     `json:"tier,omitempty"`
}

type OrchestratorOption func(*Orchestrator)

func WithModerator(m *Moderator) OrchestratorOption {
	return func(o *Orchestrator) { o.moderator = m }
}

func WithHooks(hooks ...Hook) OrchestratorOption {
	return func(o *Orchestrator) { o.hooks = append(o.hooks, hooks...) }
}

func WithLogger(logger *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.ConversationMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator applies one visitor message to a session.
type Orchestrator struct {
	cfg       OrchestratorConfig
	resolvers Chain
	leads     leads.Repository
	moderator *Moderator
	hooks     []Hook
	logger    *logging.Logger
	metrics   *metrics.ConversationMetrics
}

func NewOrchestrator(cfg OrchestratorConfig, resolvers Chain, repo leads.Repository, opts ...OrchestratorOption) *Orchestrator {
	if len(resolvers) == 0 {
		panic("conversation: at least one resolver required")
	}
	if repo == nil {
		panic("conversation: lead repository required")
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	o := &Orchestrator{
		cfg:       cfg,
		resolvers: resolvers,
		leads:     repo,
		moderator: NewModerator(),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Welcome returns the greeting shown when the widget mounts.
func (o *Orchestrator) Welcome() string {
	return welcomeMessage
}

// Start moves an idle session into the capture sequence and asks the first question.
func (o *Orchestrator) Start(ctx context.Context, s *Session) TurnResult {
	switch {
	case s.Step == StepIdle:
		s.Step = StepAwaitingName
	case !s.Step.IsCapture():
		return TurnResult{Step: s.Step, Handled: false}
	}
	reply := questionFor(s.Step)
	s.appendMessage(RoleAssistant, reply, nil)
	o.logger.Info("lead capture started", "session_id", s.ID, "step", s.Step)
	return TurnResult{Reply: reply, Step: s.Step, Handled: true}
}

// HandleTurn processes one visitor message. It never returns an error: every
// failure mode maps to a reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, s *Session, input string) TurnResult {
	ctx, span := turnTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("leadflow.session_id", s.ID),
		attribute.String("leadflow.step", s.Step.String()),
	)

	input = strings.TrimSpace(input)
	s.UserMessageCount++

	if s.UserMessageCount > o.cfg.MaxMessages {
		return o.escalate(ctx, s, input)
	}

	if verdict := o.moderator.Check(input, s.Step); verdict.Blocked {
		return o.reject(ctx, s, verdict)
	}

	s.appendMessage(RoleVisitor, input, nil)

	if !s.Step.IsCapture() {
		o.metrics.ObserveTurn(string(TierNone), "not_handled")
		return TurnResult{Step: s.Step, Handled: false}
	}

	current := s.Step
	res := o.resolvers.Resolve(ctx, input, current, s.Lead)
	outcome := res.Outcome
	if res.Kind != Resolved {
		o.logger.Error("no resolver produced an outcome", "session_id", s.ID, "step", current, "reason", res.Reason)
		outcome = Outcome{Reply: repromptFor(current)}
	}
	outcome = guardContact(outcome.Normalize(current), current, s.Lead)

	s.Lead.Merge(outcome.FieldUpdates)
	if outcome.ShouldAdvance {
		s.Step = outcome.NextStep
	}
	if s.Step == StepCompleted {
		outcome.Actions = completionActions(o.cfg.SchedulingURL, o.cfg.CaseStudiesPath)
	}
	s.Turns = append(s.Turns, Turn{Input: RedactPII(input), Step: current, Outcome: outcome, Tier: res.Tier})

	result := TurnResult{
		Reply:   outcome.Reply,
		Actions: outcome.Actions,
		Step:    s.Step,
		Handled: true,
		Tier:    res.Tier,
	}

	if s.Step == StepCompleted && !s.Persisted && !s.PersistFailed {
		result.Completed = true
		if err := o.persist(ctx, s); err != nil {
			result.Reply = o.degradationMessage()
		}
	}

	s.appendMessage(RoleAssistant, result.Reply, result.Actions)

	turnResult := "reprompt"
	if outcome.ShouldAdvance {
		turnResult = "advanced"
	}
	o.metrics.ObserveTurn(string(res.Tier), turnResult)
	o.logger.Info("turn resolved",
		"session_id", s.ID,
		"step", current,
		"next_step", s.Step,
		"tier", res.Tier,
		"advanced", outcome.ShouldAdvance,
		"classification", outcome.Classification,
	)
	return result
}

// escalate answers every message past the ceiling with the fixed reply. The
// escalation event fires only for the first of them.
func (o *Orchestrator) escalate(ctx context.Context, s *Session, input string) TurnResult {
	s.appendMessage(RoleVisitor, RedactPII(input), nil)
	reply := o.escalationMessage()
	s.appendMessage(RoleAssistant, reply, nil)

	if !s.Escalated {
		s.Escalated = true
		o.metrics.ObserveEscalation()
		o.logger.Warn("session message limit reached",
			"session_id", s.ID,
			"step", s.Step,
			"messages", s.UserMessageCount,
		)
		o.emit(ctx, Event{
			Kind:       EventEscalated,
			SessionID:  s.ID,
			Step:       s.Step,
			Reason:     "message_limit",
			Transcript: append([]ChatMessage(nil), s.Messages...),
		})
	}

	return TurnResult{
		Reply:   reply,
		Actions: o.contactActions(),
		Step:    s.Step,
		Handled: true,
		Limited: true,
	}
}

func (o *Orchestrator) reject(ctx context.Context, s *Session, verdict ModerationResult) TurnResult {
	s.appendMessage(RoleVisitor, "[message withheld]", nil)
	s.appendMessage(RoleAssistant, verdict.Reply, nil)

	o.metrics.ObserveModeration(verdict.Reason)
	o.logger.Warn("visitor message blocked",
		"session_id", s.ID,
		"step", s.Step,
		"reason", verdict.Reason,
	)
	o.emit(ctx, Event{Kind: EventContentBlocked, SessionID: s.ID, Step: s.Step, Reason: verdict.Reason})

	return TurnResult{
		Reply:   verdict.Reply,
		Step:    s.Step,
		Handled: true,
		Blocked: true,
	}
}

// persist writes the lead once. A failure is final for the session. The lead
// ID is derived from the session, so replaying a completion whose session save
// was lost finds the stored lead rather than writing another.
func (o *Orchestrator) persist(ctx context.Context, s *Session) error {
	lead := s.Lead
	if lead.ID == "" {
		lead.ID = leads.IDForSession(s.ID)
	}
	created, err := o.leads.Create(ctx, &lead)
	if errors.Is(err, leads.ErrLeadExists) && lead.ID != "" {
		existing, getErr := o.leads.GetByID(ctx, lead.ID)
		if getErr == nil {
			s.Persisted = true
			s.LeadID = existing.ID
			s.Lead = *existing
			o.metrics.ObservePersist("duplicate")
			o.logger.Info("lead already captured for session", "session_id", s.ID, "lead_id", existing.ID)
			return nil
		}
		err = fmt.Errorf("%w (lookup: %v)", err, getErr)
	}
	if err != nil {
		s.PersistFailed = true
		o.metrics.ObservePersist("error")
		o.logger.Error("lead persistence failed",
			"session_id", s.ID,
			"error", err,
		)
		o.emit(ctx, Event{Kind: EventPersistFailed, SessionID: s.ID, Step: s.Step, Reason: err.Error(), Lead: &lead})
		return fmt.Errorf("conversation: persist lead: %w", err)
	}

	s.Persisted = true
	s.LeadID = created.ID
	s.Lead = *created
	o.metrics.ObservePersist("ok")
	o.logger.Info("lead captured", "session_id", s.ID, "lead_id", created.ID)

	o.emit(ctx, Event{
		Kind:       EventLeadCaptured,
		SessionID:  s.ID,
		Step:       s.Step,
		Lead:       created,
		Transcript: append([]ChatMessage(nil), s.Messages...),
	})
	return nil
}

// emit runs hooks in order. Each hook gets its own deadline and is not
// cancelled by the caller going away.
func (o *Orchestrator) emit(ctx context.Context, event Event) {
	for _, hook := range o.hooks {
		hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
		err := hook.Handle(hookCtx, event)
		cancel()
		o.metrics.ObserveHook(hook.Name(), err)
		if err != nil {
			o.logger.Warn("completion hook failed",
				"hook", hook.Name(),
				"event", event.Kind,
				"session_id", event.SessionID,
				"error", err,
			)
		}
	}
}

func (o *Orchestrator) escalationMessage() string {
	msg := "We've reached the message limit for this chat. Please reach out to our team directly"
	if o.cfg.FallbackContact != "" {
		msg += " at " + o.cfg.FallbackContact
	}
	if o.cfg.SchedulingURL != "" {
		msg += ", or book a call using the button below"
	}
	return msg + "."
}

func (o *Orchestrator) degradationMessage() string {
	msg := "Thanks for sharing all of that! We hit a snag saving your details on our side."
	if o.cfg.FallbackContact != "" {
		msg += " Please email us at " + o.cfg.FallbackContact + " so we don't miss you."
	}
	return msg
}

// guardContact drops email and phone updates that fail validation, whichever
// tier proposed them, and holds the flow at the email step until the lead has
// a valid address.
func guardContact(outcome Outcome, current Step, lead leads.Lead) Outcome {
	updates := outcome.FieldUpdates
	if updates.Email != "" && !IsValidEmail(updates.Email) {
		updates.Email = ""
	}
	if updates.Phone != "" {
		if IsValidPhone(updates.Phone) {
			updates.Phone = NormalizePhone(updates.Phone)
		} else {
			updates.Phone = ""
		}
	}
	outcome.FieldUpdates = updates

	if !outcome.ShouldAdvance || !current.CanMoveTo(StepAwaitingEmail) || outcome.NextStep == StepAwaitingEmail {
		return outcome
	}
	if !StepAwaitingEmail.CanMoveTo(outcome.NextStep) {
		return outcome
	}
	if IsValidEmail(updates.Email) || IsValidEmail(lead.Email) {
		return outcome
	}
	if current == StepAwaitingEmail {
		outcome.ShouldAdvance = false
		outcome.NextStep = ""
		outcome.Reply = repromptFor(StepAwaitingEmail)
		outcome.Classification = "reprompt"
		return outcome
	}
	outcome.NextStep = StepAwaitingEmail
	outcome.Reply = "Thanks! " + questionFor(StepAwaitingEmail)
	return outcome
}

func (o *Orchestrator) contactActions() []Action {
	if o.cfg.SchedulingURL == "" {
		return nil
	}
	return []Action{{Label: "Book a Call", URL: o.cfg.SchedulingURL}}
}
