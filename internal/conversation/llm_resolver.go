package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/internal/llm"
	"github.com/wolfman30/leadflow/internal/observability/metrics"
	"github.com/wolfman30/leadflow/pkg/logging"
)

var llmTracer = otel.Tracer("leadflow.internal.conversation.llm")

const (
	defaultLLMTimeout   = 20 * time.Second
	defaultLLMMaxTokens = 400
)

var errMalformedReply = errors.New("conversation: malformed llm reply")

const systemPrompt = `You are the lead intake assistant on the website of a business-automation consultancy.
You walk visitors through a short, friendly intake so the sales team can follow up.

Rules:
- Ask for one thing at a time, in the order of the steps below.
- Skip any step whose fields are already filled in the lead record. Never ask again for a field that is already set.
- Keep replies under three sentences. No markdown.
- Never invent data the visitor did not give you.
- Respond with a single JSON object and nothing else:
  {"reply": string, "should_advance": bool, "next_step": string, "field_updates": {field: value}, "classification": string, "actions": [{"label": string, "url": string}]}
- Only set next_step when should_advance is true. next_step must be one of the step names below and must not go backwards.
- When the final step is answered, set next_step to "completed". Leave "actions" empty then; the booking and case-study buttons are added for you.
- Only put an email or phone number in field_updates if the visitor typed one. Invalid or disposable addresses are discarded.`

// LLMOption configures the LLMResolver.
type LLMOption func(*LLMResolver)

func WithModel(model string) LLMOption {
	return func(r *LLMResolver) { r.model = model }
}

func WithLLMTimeout(d time.Duration) LLMOption {
	return func(r *LLMResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLLMLogger(logger *logging.Logger) LLMOption {
	return func(r *LLMResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithLLMMetrics(m *metrics.ConversationMetrics) LLMOption {
	return func(r *LLMResolver) { r.metrics = m }
}

// LLMResolver is the primary tier. Any provider error or unparseable reply
// defers to the next tier; it never returns an error to the caller.
type LLMResolver struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.ConversationMetrics
}

func NewLLMResolver(client llm.Client, opts ...LLMOption) *LLMResolver {
	r := &LLMResolver{
		client:  client,
		timeout: defaultLLMTimeout,
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *LLMResolver) Resolve(ctx context.Context, input string, step Step, lead leads.Lead) Resolution {
	if r == nil || r.client == nil {
		return deferred(TierLLM, "llm client not configured")
	}

	ctx, span := llmTracer.Start(ctx, "conversation.llm_resolve")
	defer span.End()
	span.SetAttributes(attribute.String("leadflow.step", step.String()))

	req, err := r.buildRequest(input, step, lead)
	if err != nil {
		span.RecordError(err)
		return deferred(TierLLM, err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.client.Complete(callCtx, req)
	latency := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.ObserveLLM(r.modelLabel(), status, latency.Seconds())
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("llm completion failed, deferring to rules",
			"step", step,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return deferred(TierLLM, err.Error())
	}
	r.metrics.AddTokens(r.modelLabel(), "input", resp.Usage.InputTokens)
	r.metrics.AddTokens(r.modelLabel(), "output", resp.Usage.OutputTokens)
	r.metrics.AddTokens(r.modelLabel(), "total", resp.Usage.TotalTokens)
	span.SetAttributes(
		attribute.Int64("leadflow.llm.latency_ms", latency.Milliseconds()),
		attribute.Int("leadflow.llm.total_tokens", int(resp.Usage.TotalTokens)),
	)

	outcome, err := parseLLMReply(resp.Text)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("llm reply was not valid JSON, deferring to rules",
			"step", step,
			"error", err,
		)
		return deferred(TierLLM, err.Error())
	}
	return resolved(TierLLM, outcome)
}

func (r *LLMResolver) modelLabel() string {
	if r.model == "" {
		return "default"
	}
	return r.model
}

type promptPayload struct {
	CurrentStep string     `json:"current_step"`
	UserInput   string     `json:"user_input"`
	Lead        leads.Lead `json:"lead"`
}

func (r *LLMResolver) buildRequest(input string, step Step, lead leads.Lead) (llm.Request, error) {
	payload, err := json.Marshal(promptPayload{
		CurrentStep: step.String(),
		UserInput:   input,
		Lead:        lead,
	})
	if err != nil {
		return llm.Request{}, fmt.Errorf("conversation: encode prompt: %w", err)
	}
	return llm.Request{
		Model:       r.model,
		System:      []string{systemPrompt, stepGuidePrompt()},
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: string(payload)}},
		MaxTokens:   defaultLLMMaxTokens,
		Temperature: 0.2,
	}, nil
}

// stepGuidePrompt renders the step catalog in sequence order.
func stepGuidePrompt() string {
	var b strings.Builder
	b.WriteString("Steps, in order:\n")
	for _, step := range stepOrder {
		guide, ok := stepCatalog[step]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: ask %q. Fills %s. %s\n",
			step, guide.Question, strings.Join(guide.Fields, ", "), guide.Guidance)
	}
	b.WriteString("- completed: the intake is done.\n")
	return b.String()
}

type llmReply struct {
	Reply          string     `json:"reply"`
	ShouldAdvance  bool       `json:"should_advance"`
	NextStep       string     `json:"next_step"`
	FieldUpdates   leads.Lead `json:"field_updates"`
	Classification string     `json:"classification"`
	Actions        []Action   `json:"actions"`
}

func parseLLMReply(raw string) (Outcome, error) {
	text := extractJSONObject(stripCodeFence(raw))
	if text == "" {
		return Outcome{}, errMalformedReply
	}
	var reply llmReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", errMalformedReply, err)
	}

	outcome := Outcome{
		Reply:          strings.TrimSpace(reply.Reply),
		ShouldAdvance:  reply.ShouldAdvance,
		FieldUpdates:   reply.FieldUpdates,
		Classification: strings.TrimSpace(reply.Classification),
		Actions:        reply.Actions,
	}
	if next, ok := ParseStep(reply.NextStep); ok {
		outcome.NextStep = next
	}
	if outcome.Reply == "" {
		outcome.Reply = genericReply
	}
	if outcome.Classification == "" {
		outcome.Classification = defaultClassification
	}
	return outcome, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return ""
}
