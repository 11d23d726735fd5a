package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)

	m.ObserveTurn("llm", "advanced")
	m.ObserveTurn("llm", "advanced")
	m.ObserveTurn("rules", "reprompt")
	m.ObserveModeration("ssn")
	m.ObserveEscalation()
	m.ObservePersist("ok")
	m.ObserveHook("notify", errors.New("smtp down"))
	m.AddTokens("m", "input", 12)
	m.AddTokens("m", "input", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("llm", "advanced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("rules", "reprompt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.moderationTotal.WithLabelValues("ssn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.escalationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hookTotal.WithLabelValues("notify", "error")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.llmTokensTotal.WithLabelValues("m", "input")))
}

func TestConversationMetricsLatencyHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)
	m.ObserveLLM("m", "ok", 0.4)
	m.ObserveLLM("m", "ok", 1.2)

	families, err := reg.Gather()
	require.NoError(t, err)

	var hist *dto.Histogram
	for _, fam := range families {
		if fam.GetName() == "leadflow_conversation_llm_latency_seconds" {
			hist = fam.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetSampleCount())
}

func TestConversationMetricsSockets(t *testing.T) {
	m := NewConversationMetrics(prometheus.NewRegistry())
	m.SocketOpened()
	m.SocketOpened()
	m.SocketClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSockets))
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveTurn("llm", "advanced")
	m.ObserveModeration("pan")
	m.ObserveEscalation()
	m.ObservePersist("error")
	m.ObserveHook("sqs", nil)
	m.ObserveLLM("m", "error", 1)
	m.AddTokens("m", "total", 3)
	m.SocketOpened()
	m.SocketClosed()
}
