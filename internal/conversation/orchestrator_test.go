package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadflow/internal/leads"
)

type countingResolver struct {
	inner Resolver
	calls int
}

func (c *countingResolver) Resolve(ctx context.Context, input string, step Step, lead leads.Lead) Resolution {
	c.calls++
	return c.inner.Resolve(ctx, input, step, lead)
}

type countingRepo struct {
	leads.Repository
	creates int
	err     error
}

func (r *countingRepo) Create(ctx context.Context, lead *leads.Lead) (*leads.Lead, error) {
	r.creates++
	if r.err != nil {
		return nil, r.err
	}
	return r.Repository.Create(ctx, lead)
}

type recordingHook struct {
	events []Event
	err    error
}

func (h *recordingHook) Name() string { return "recorder" }

func (h *recordingHook) Handle(ctx context.Context, e Event) error {
	h.events = append(h.events, e)
	return h.err
}

var testOrchestratorConfig = OrchestratorConfig{
	MaxMessages:     20,
	SchedulingURL:   "https://cal.example/discovery",
	CaseStudiesPath: "/case-studies",
	FallbackContact: "hello@leadflow.example",
}

func failingLLM() *stubLLM {
	return &stubLLM{err: errors.New("connection refused")}
}

func startedSession(t *testing.T, o *Orchestrator) *Session {
	t.Helper()
	s, err := NewSession("website_chatbot")
	require.NoError(t, err)
	res := o.Start(context.Background(), s)
	require.True(t, res.Handled)
	require.Equal(t, StepAwaitingName, s.Step)
	return s
}

var happyPath = []struct {
	input string
	step  Step
}{
	{"Jane Doe", StepAwaitingName},
	{"Acme Logistics", StepAwaitingCompany},
	{"Head of Operations", StepAwaitingRole},
	{"Logistics", StepAwaitingIndustry},
	{"40 people", StepAwaitingCompanySize},
	{"Austin, TX", StepAwaitingLocation},
	{"https://acme.io", StepAwaitingWebsite},
	{"we re-key every order into three systems", StepAwaitingNeeds},
	{"around $15k, this quarter", StepAwaitingBudget},
	{"both please", StepAwaitingContactChoice},
	{"jane@acme.io", StepAwaitingEmail},
	{"+1 415 555 0123", StepAwaitingPhone},
	{"We already use Zapier a bit", StepAwaitingAdditionalInfo},
}

func TestOrchestratorFullFlowWithFailingLLM(t *testing.T) {
	repo := &countingRepo{Repository: leads.NewInMemoryRepository()}
	hook := &recordingHook{}
	llmTier := NewLLMResolver(failingLLM())
	o := NewOrchestrator(testOrchestratorConfig, Chain{llmTier, newTestRules()}, repo, WithHooks(hook))
	s := startedSession(t, o)

	var last TurnResult
	for _, turn := range happyPath {
		require.Equal(t, turn.step, s.Step)
		last = o.HandleTurn(context.Background(), s, turn.input)
		require.True(t, last.Handled)
		require.False(t, last.Blocked, turn.input)
		assert.Equal(t, TierRules, last.Tier)
	}

	assert.Equal(t, StepCompleted, s.Step)
	assert.True(t, last.Completed)
	require.Len(t, last.Actions, 2)
	assert.Equal(t, 1, repo.creates)
	assert.True(t, s.Persisted)
	assert.NotEmpty(t, s.LeadID)

	stored, err := repo.GetByID(context.Background(), s.LeadID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", stored.FirstName)
	assert.Equal(t, "Doe", stored.LastName)
	assert.Equal(t, "Acme Logistics", stored.CompanyName)
	assert.Equal(t, "jane@acme.io", stored.Email)
	assert.Equal(t, "+14155550123", stored.Phone)
	assert.Equal(t, "website_chatbot", stored.Source)
	assert.Equal(t, s.ID, stored.SessionID)
	assert.Equal(t, noteBoth+"\nWe already use Zapier a bit", stored.Notes)

	require.Len(t, hook.events, 1)
	assert.Equal(t, EventLeadCaptured, hook.events[0].Kind)
	assert.Equal(t, s.LeadID, hook.events[0].Lead.ID)
	assert.NotEmpty(t, hook.events[0].Transcript)

	after := o.HandleTurn(context.Background(), s, "one more thing")
	assert.False(t, after.Handled)
	assert.Equal(t, 1, repo.creates)
}

func TestOrchestratorFallbackMatchesRulesAlone(t *testing.T) {
	inputs := []string{"ok", "yes", "Jane Doe", "hi", "Acme", "AB", "person@company.com",
		"not-an-email", "person@mailinator.com", "skip", "+14155550123", "audit", "whatever",
		"a long description of our problem", "$5k"}

	rulesOnly := NewOrchestrator(testOrchestratorConfig, Chain{newTestRules()}, leads.NewInMemoryRepository())
	withLLM := NewOrchestrator(testOrchestratorConfig, Chain{NewLLMResolver(failingLLM()), newTestRules()}, leads.NewInMemoryRepository())

	for _, step := range Steps() {
		if !step.IsCapture() {
			continue
		}
		for _, input := range inputs {
			a := &Session{ID: "a", Step: step, Lead: leads.Lead{Source: "web", Email: "x@company.com"}}
			b := &Session{ID: "b", Step: step, Lead: leads.Lead{Source: "web", Email: "x@company.com"}}
			ra := rulesOnly.HandleTurn(context.Background(), a, input)
			rb := withLLM.HandleTurn(context.Background(), b, input)
			assert.Equal(t, ra.Step, rb.Step, "step %s input %q", step, input)
			assert.Equal(t, ra.Reply, rb.Reply, "step %s input %q", step, input)
			assert.Equal(t, a.Lead.FirstName, b.Lead.FirstName)
			assert.Equal(t, a.Lead.Notes, b.Lead.Notes)
		}
	}
}

func TestOrchestratorMessageCeiling(t *testing.T) {
	llmClient := &stubLLM{text: `{"reply":"Could you repeat that?","should_advance":false}`}
	primary := &countingResolver{inner: NewLLMResolver(llmClient)}
	fallback := &countingResolver{inner: newTestRules()}
	hook := &recordingHook{}
	o := NewOrchestrator(testOrchestratorConfig, Chain{primary, fallback}, leads.NewInMemoryRepository(), WithHooks(hook))
	s := startedSession(t, o)

	for i := 0; i < 20; i++ {
		res := o.HandleTurn(context.Background(), s, "hmm")
		require.False(t, res.Limited, "message %d", i+1)
	}
	require.Equal(t, 20, primary.calls)
	require.Equal(t, 0, fallback.calls)

	res := o.HandleTurn(context.Background(), s, "Jane Doe")
	assert.True(t, res.Limited)
	assert.True(t, res.Handled)
	assert.Contains(t, res.Reply, "hello@leadflow.example")
	assert.Equal(t, StepAwaitingName, res.Step)
	assert.Equal(t, 20, primary.calls)
	assert.Equal(t, 0, fallback.calls)
	assert.Equal(t, 20, llmClient.calls)
	require.Len(t, hook.events, 1)
	assert.Equal(t, EventEscalated, hook.events[0].Kind)
	assert.True(t, s.Escalated)

	for i := 0; i < 4; i++ {
		more := o.HandleTurn(context.Background(), s, "hello?")
		assert.True(t, more.Limited)
		assert.Equal(t, res.Reply, more.Reply)
	}
	assert.Len(t, hook.events, 1)
	assert.Equal(t, 0, fallback.calls)
}

func TestOrchestratorModerationBlocksBeforeResolvers(t *testing.T) {
	rules := &countingResolver{inner: newTestRules()}
	hook := &recordingHook{}
	o := NewOrchestrator(testOrchestratorConfig, Chain{rules}, leads.NewInMemoryRepository(), WithHooks(hook))
	s := startedSession(t, o)

	res := o.HandleTurn(context.Background(), s, "my SSN is 123-45-6789")
	assert.True(t, res.Blocked)
	assert.Equal(t, StepAwaitingName, s.Step)
	assert.Equal(t, 0, rules.calls)
	for _, m := range s.Messages {
		assert.NotContains(t, m.Content, "123-45-6789")
	}
	require.Len(t, hook.events, 1)
	assert.Equal(t, EventContentBlocked, hook.events[0].Kind)
	assert.Equal(t, ReasonSSN, hook.events[0].Reason)
}

func TestOrchestratorIdleIsNotHandled(t *testing.T) {
	rules := &countingResolver{inner: newTestRules()}
	o := NewOrchestrator(testOrchestratorConfig, Chain{rules}, leads.NewInMemoryRepository())
	s, err := NewSession("web")
	require.NoError(t, err)

	res := o.HandleTurn(context.Background(), s, "what do you do?")
	assert.False(t, res.Handled)
	assert.Equal(t, StepIdle, s.Step)
	assert.Equal(t, 0, rules.calls)
}

func TestOrchestratorStartIsIdempotent(t *testing.T) {
	o := NewOrchestrator(testOrchestratorConfig, Chain{newTestRules()}, leads.NewInMemoryRepository())
	s := startedSession(t, o)
	res := o.Start(context.Background(), s)
	assert.Equal(t, StepAwaitingName, res.Step)
	assert.Equal(t, questionFor(StepAwaitingName), res.Reply)

	s.Step = StepCompleted
	assert.False(t, o.Start(context.Background(), s).Handled)
}

func TestOrchestratorPersistFailureDegradesOnce(t *testing.T) {
	repo := &countingRepo{Repository: leads.NewInMemoryRepository(), err: errors.New("connection reset")}
	hook := &recordingHook{}
	o := NewOrchestrator(testOrchestratorConfig, Chain{newTestRules()}, repo, WithHooks(hook))
	s := &Session{ID: "s1", Step: StepAwaitingAdditionalInfo, Lead: leads.Lead{Source: "web", Email: "jane@acme.io"}}

	res := o.HandleTurn(context.Background(), s, "nothing else")
	assert.Equal(t, StepCompleted, res.Step)
	assert.Contains(t, res.Reply, "hello@leadflow.example")
	assert.True(t, s.PersistFailed)
	assert.False(t, s.Persisted)
	assert.Equal(t, 1, repo.creates)
	require.Len(t, hook.events, 1)
	assert.Equal(t, EventPersistFailed, hook.events[0].Kind)

	o.HandleTurn(context.Background(), s, "hello?")
	assert.Equal(t, 1, repo.creates)
}

func TestOrchestratorHookFailureDoesNotChangeReply(t *testing.T) {
	hook := &recordingHook{err: errors.New("sqs unavailable")}
	o := NewOrchestrator(testOrchestratorConfig, Chain{newTestRules()}, leads.NewInMemoryRepository(), WithHooks(hook))
	s := &Session{ID: "s1", Step: StepAwaitingAdditionalInfo, Lead: leads.Lead{Source: "web", Email: "jane@acme.io"}}

	res := o.HandleTurn(context.Background(), s, "that's all")
	assert.Equal(t, completionReply, res.Reply)
	assert.True(t, s.Persisted)
}

func TestOrchestratorMergeKeepsPopulatedFields(t *testing.T) {
	client := &stubLLM{text: `{"reply":"Thanks!","should_advance":true,"next_step":"awaiting_role","field_updates":{"first_name":"","company_name":"Acme"}}`}
	o := NewOrchestrator(testOrchestratorConfig, Chain{NewLLMResolver(client), newTestRules()}, leads.NewInMemoryRepository())
	s := &Session{ID: "s1", Step: StepAwaitingCompany, Lead: leads.Lead{FirstName: "Jane"}}

	res := o.HandleTurn(context.Background(), s, "Acme")
	assert.Equal(t, TierLLM, res.Tier)
	assert.Equal(t, StepAwaitingRole, s.Step)
	assert.Equal(t, "Jane", s.Lead.FirstName)
	assert.Equal(t, "Acme", s.Lead.CompanyName)
}

func TestOrchestratorRejectsBackwardLLMProposal(t *testing.T) {
	client := &stubLLM{text: `{"reply":"What's your name again?","should_advance":true,"next_step":"awaiting_name"}`}
	o := NewOrchestrator(testOrchestratorConfig, Chain{NewLLMResolver(client), newTestRules()}, leads.NewInMemoryRepository())
	s := &Session{ID: "s1", Step: StepAwaitingEmail}

	res := o.HandleTurn(context.Background(), s, "jane@acme.io")
	assert.Equal(t, StepAwaitingEmail, res.Step)
	assert.Equal(t, "What's your name again?", res.Reply)
}

func TestOrchestratorLLMMaySkipPopulatedSteps(t *testing.T) {
	client := &stubLLM{text: `{"reply":"What's the best email?","should_advance":true,"next_step":"awaiting_email","field_updates":{"notes":"Interested in: workflow audit"}}`}
	o := NewOrchestrator(testOrchestratorConfig, Chain{NewLLMResolver(client), newTestRules()}, leads.NewInMemoryRepository())
	s := &Session{ID: "s1", Step: StepAwaitingBudget}

	o.HandleTurn(context.Background(), s, "no budget yet, just want the audit")
	assert.Equal(t, StepAwaitingEmail, s.Step)
}

func TestNewOrchestratorPanics(t *testing.T) {
	assert.Panics(t, func() { NewOrchestrator(testOrchestratorConfig, nil, leads.NewInMemoryRepository()) })
	assert.Panics(t, func() { NewOrchestrator(testOrchestratorConfig, Chain{newTestRules()}, nil) })
}

func TestOrchestratorLLMCompletionGetsConfiguredActions(t *testing.T) {
	client := &stubLLM{text: `{"reply":"All set, talk soon!","should_advance":true,"next_step":"completed","actions":[{"label":"Visit","url":"https://made-up.example"}]}`}
	repo := leads.NewInMemoryRepository()
	o := NewOrchestrator(testOrchestratorConfig, Chain{NewLLMResolver(client), newTestRules()}, repo)
	s := &Session{ID: "s1", Step: StepAwaitingAdditionalInfo, Lead: leads.Lead{Source: "web", Email: "jane@acme.io"}}

	res := o.HandleTurn(context.Background(), s, "nothing else")
	assert.Equal(t, TierLLM, res.Tier)
	assert.Equal(t, StepCompleted, res.Step)
	assert.True(t, res.Completed)
	assert.Equal(t, []Action{
		{Label: "Book a Call", URL: "https://cal.example/discovery"},
		{Label: "See Case Studies", URL: "/case-studies"},
	}, res.Actions)
	last := s.Messages[len(s.Messages)-1]
	assert.Len(t, last.Actions, 2)
}

func TestOrchestratorDropsInvalidContactFromLLM(t *testing.T) {
	client := &stubLLM{text: `{"reply":"Thanks! And a phone number?","should_advance":true,"next_step":"awaiting_phone","field_updates":{"email":"person@mailinator.com"}}`}
	o := NewOrchestrator(testOrchestratorConfig, Chain{NewLLMResolver(client), newTestRules()}, leads.NewInMemoryRepository())
	s := &Session{ID: "s1", Step: StepAwaitingEmail}

	res := o.HandleTurn(context.Background(), s, "person@mailinator.com")
	assert.Equal(t, StepAwaitingEmail, res.Step)
	assert.Empty(t, s.Lead.Email)
	assert.Equal(t, repromptFor(StepAwaitingEmail), res.Reply)

	client.text = `{"reply":"Got it!","should_advance":true,"next_step":"awaiting_additional_info","field_updates":{"email":"jane@acme.io","phone":"0123"}}`
	res = o.HandleTurn(context.Background(), s, "jane@acme.io, 0123")
	assert.Equal(t, StepAwaitingAdditionalInfo, res.Step)
	assert.Equal(t, "jane@acme.io", s.Lead.Email)
	assert.Empty(t, s.Lead.Phone)
}

func TestOrchestratorLLMCannotSkipPastEmailWithoutOne(t *testing.T) {
	client := &stubLLM{text: `{"reply":"Anything else?","should_advance":true,"next_step":"awaiting_additional_info","field_updates":{"phone":"+1 (415) 555-0123"}}`}
	o := NewOrchestrator(testOrchestratorConfig, Chain{NewLLMResolver(client), newTestRules()}, leads.NewInMemoryRepository())
	s := &Session{ID: "s1", Step: StepAwaitingContactChoice}

	res := o.HandleTurn(context.Background(), s, "a call please")
	assert.Equal(t, StepAwaitingEmail, res.Step)
	assert.Equal(t, "+14155550123", s.Lead.Phone)
	assert.Contains(t, res.Reply, questionFor(StepAwaitingEmail))
}

func TestOrchestratorReplayedCompletionStoresOneLead(t *testing.T) {
	repo := &countingRepo{Repository: leads.NewInMemoryRepository()}
	hook := &recordingHook{}
	o := NewOrchestrator(testOrchestratorConfig, Chain{newTestRules()}, repo, WithHooks(hook))
	snapshot := Session{ID: "s1", Step: StepAwaitingAdditionalInfo, Lead: leads.Lead{Source: "web", Email: "jane@acme.io"}}

	first := snapshot
	o.HandleTurn(context.Background(), &first, "that's all")
	require.True(t, first.Persisted)

	replay := snapshot
	res := o.HandleTurn(context.Background(), &replay, "that's all")
	assert.Equal(t, StepCompleted, res.Step)
	assert.Equal(t, completionReply, res.Reply)
	assert.True(t, replay.Persisted)
	assert.Equal(t, first.LeadID, replay.LeadID)
	assert.Equal(t, leads.IDForSession("s1"), replay.LeadID)
	assert.Equal(t, 2, repo.creates)
	assert.Equal(t, 1, repo.Repository.(*leads.InMemoryRepository).Count())
	require.Len(t, hook.events, 1)
}
