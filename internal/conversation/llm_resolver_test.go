package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/internal/llm"
	"github.com/wolfman30/leadflow/internal/observability/metrics"
)

type stubLLM struct {
	text  string
	err   error
	calls int
	last  llm.Request
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Text: s.text, Usage: llm.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
}

func TestLLMResolverParsesStructuredReply(t *testing.T) {
	client := &stubLLM{text: "```json\n{\"reply\":\"Thanks Jane! What company are you with?\",\"should_advance\":true,\"next_step\":\"awaiting_company\",\"field_updates\":{\"first_name\":\"Jane\",\"last_name\":\"Doe\"},\"classification\":\"lead_capture\"}\n```"}
	r := NewLLMResolver(client, WithModel("test-model"), WithLLMMetrics(metrics.NewConversationMetrics(prometheus.NewRegistry())))

	res := r.Resolve(context.Background(), "Jane Doe", StepAwaitingName, leads.Lead{Source: "website_chatbot"})
	require.Equal(t, Resolved, res.Kind)
	assert.Equal(t, TierLLM, res.Tier)
	assert.True(t, res.Outcome.ShouldAdvance)
	assert.Equal(t, StepAwaitingCompany, res.Outcome.NextStep)
	assert.Equal(t, "Jane", res.Outcome.FieldUpdates.FirstName)
	assert.Equal(t, "lead_capture", res.Outcome.Classification)
	assert.Equal(t, "test-model", client.last.Model)
}

func TestLLMResolverPromptCarriesStepInputAndLead(t *testing.T) {
	client := &stubLLM{text: `{"reply":"ok"}`}
	r := NewLLMResolver(client)
	r.Resolve(context.Background(), "Acme", StepAwaitingCompany, leads.Lead{FirstName: "Jane"})

	require.Len(t, client.last.Messages, 1)
	var payload promptPayload
	require.NoError(t, json.Unmarshal([]byte(client.last.Messages[0].Content), &payload))
	assert.Equal(t, "awaiting_company", payload.CurrentStep)
	assert.Equal(t, "Acme", payload.UserInput)
	assert.Equal(t, "Jane", payload.Lead.FirstName)

	system := strings.Join(client.last.System, "\n")
	assert.Contains(t, system, "Never ask again for a field that is already set")
	for _, step := range Steps() {
		if step.IsCapture() {
			assert.Contains(t, system, string(step))
		}
	}
}

func TestLLMResolverDefaults(t *testing.T) {
	r := NewLLMResolver(&stubLLM{text: `{}`})
	res := r.Resolve(context.Background(), "hello", StepAwaitingName, leads.Lead{})
	require.Equal(t, Resolved, res.Kind)
	assert.Equal(t, genericReply, res.Outcome.Reply)
	assert.False(t, res.Outcome.ShouldAdvance)
	assert.Equal(t, defaultClassification, res.Outcome.Classification)
}

func TestLLMResolverDefersOnTransportError(t *testing.T) {
	r := NewLLMResolver(&stubLLM{err: errors.New("503 service unavailable")})
	res := r.Resolve(context.Background(), "Jane", StepAwaitingName, leads.Lead{})
	assert.Equal(t, Deferred, res.Kind)
	assert.Contains(t, res.Reason, "503")
}

func TestLLMResolverDefersOnMalformedJSON(t *testing.T) {
	for _, text := range []string{"Sure! Your name is Jane.", `{"reply": "unterminated`, ""} {
		res := NewLLMResolver(&stubLLM{text: text}).Resolve(context.Background(), "Jane", StepAwaitingName, leads.Lead{})
		assert.Equal(t, Deferred, res.Kind, text)
	}
}

func TestLLMResolverDefersOnTimeout(t *testing.T) {
	slow := llm.ClientFunc(func(ctx context.Context, req llm.Request) (llm.Response, error) {
		<-ctx.Done()
		return llm.Response{}, ctx.Err()
	})
	r := NewLLMResolver(slow, WithLLMTimeout(10*time.Millisecond))
	res := r.Resolve(context.Background(), "Jane", StepAwaitingName, leads.Lead{})
	assert.Equal(t, Deferred, res.Kind)
}

func TestLLMResolverWithoutClientDefers(t *testing.T) {
	res := NewLLMResolver(nil).Resolve(context.Background(), "Jane", StepAwaitingName, leads.Lead{})
	assert.Equal(t, Deferred, res.Kind)
}

func TestLLMResolverUnknownNextStepFallsBackToSequence(t *testing.T) {
	r := NewLLMResolver(&stubLLM{text: `{"reply":"next","should_advance":true,"next_step":"awaiting_fax"}`})
	res := r.Resolve(context.Background(), "Acme", StepAwaitingCompany, leads.Lead{})
	require.Equal(t, Resolved, res.Kind)
	out := res.Outcome.Normalize(StepAwaitingCompany)
	assert.Equal(t, StepAwaitingRole, out.NextStep)
}

func TestChainFallsThroughOnDeferred(t *testing.T) {
	chain := Chain{NewLLMResolver(&stubLLM{err: errors.New("down")}), newTestRules()}
	res := chain.Resolve(context.Background(), "Jane Doe", StepAwaitingName, leads.Lead{})
	require.Equal(t, Resolved, res.Kind)
	assert.Equal(t, TierRules, res.Tier)
	assert.Equal(t, "Jane", res.Outcome.FieldUpdates.FirstName)
}

func TestChainAllDeferred(t *testing.T) {
	res := Chain{NewLLMResolver(nil)}.Resolve(context.Background(), "x", StepAwaitingName, leads.Lead{})
	assert.Equal(t, Deferred, res.Kind)
	res = Chain{}.Resolve(context.Background(), "x", StepAwaitingName, leads.Lead{})
	assert.Equal(t, Deferred, res.Kind)
}
