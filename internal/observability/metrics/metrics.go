package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the lead-capture flow.
type ConversationMetrics struct {
	turnsTotal       *prometheus.CounterVec
	moderationTotal  *prometheus.CounterVec
	escalationsTotal prometheus.Counter
	persistTotal     *prometheus.CounterVec
	hookTotal        *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
	llmTokensTotal   *prometheus.CounterVec
	activeSockets    prometheus.Gauge
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Visitor turns by resolver tier and result",
		}, []string{"tier", "result"}),
		moderationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "conversation",
			Name:      "moderation_blocks_total",
			Help:      "Visitor messages rejected before resolution",
		}, []string{"reason"}),
		escalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "conversation",
			Name:      "escalations_total",
			Help:      "Turns answered with the message-limit escalation",
		}),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "leads",
			Name:      "persist_total",
			Help:      "Lead persistence attempts",
		}, []string{"status"}),
		hookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "leads",
			Name:      "completion_hooks_total",
			Help:      "Post-capture hook executions",
		}, []string{"hook", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leadflow",
			Subsystem: "conversation",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completions",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30},
		}, []string{"model", "status"}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadflow",
			Subsystem: "conversation",
			Name:      "llm_tokens_total",
			Help:      "Tokens used by the LLM",
		}, []string{"model", "type"}),
		activeSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadflow",
			Subsystem: "webchat",
			Name:      "active_sockets",
			Help:      "Open widget WebSocket connections",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.turnsTotal,
		m.moderationTotal,
		m.escalationsTotal,
		m.persistTotal,
		m.hookTotal,
		m.llmLatency,
		m.llmTokensTotal,
		m.activeSockets,
	)
	return m
}

func (m *ConversationMetrics) ObserveTurn(tier, result string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(tier, result).Inc()
}

func (m *ConversationMetrics) ObserveModeration(reason string) {
	if m == nil {
		return
	}
	m.moderationTotal.WithLabelValues(reason).Inc()
}

func (m *ConversationMetrics) ObserveEscalation() {
	if m == nil {
		return
	}
	m.escalationsTotal.Inc()
}

func (m *ConversationMetrics) ObservePersist(status string) {
	if m == nil {
		return
	}
	m.persistTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveHook(hook string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.hookTotal.WithLabelValues(hook, status).Inc()
}

func (m *ConversationMetrics) ObserveLLM(model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(model, status).Observe(seconds)
}

// AddTokens records token usage; kind is input, output or total.
func (m *ConversationMetrics) AddTokens(model, kind string, n int32) {
	if m == nil || n <= 0 {
		return
	}
	m.llmTokensTotal.WithLabelValues(model, kind).Add(float64(n))
}

func (m *ConversationMetrics) SocketOpened() {
	if m == nil {
		return
	}
	m.activeSockets.Inc()
}

func (m *ConversationMetrics) SocketClosed() {
	if m == nil {
		return
	}
	m.activeSockets.Dec()
}
