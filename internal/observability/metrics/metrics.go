package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "clinic"

// SchedulingMetrics counts engine operations by outcome code.
type SchedulingMetrics struct {
	operationsTotal *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Scheduling engine operations by outcome",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "operation_latency_seconds",
			Help:      "Latency of scheduling engine operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.latency)
	return m
}

func (m *SchedulingMetrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(seconds)
}

// ToolMetrics tracks tool dispatches made on behalf of the model.
type ToolMetrics struct {
	callsTotal *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func NewToolMetrics(reg prometheus.Registerer) *ToolMetrics {
	m := &ToolMetrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Tool calls by tool and outcome",
		}, []string{"tool", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "call_latency_seconds",
			Help:      "Latency of tool dispatches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.callsTotal, m.latency)
	return m
}

func (m *ToolMetrics) ObserveCall(tool, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(tool, outcome).Inc()
	m.latency.WithLabelValues(tool).Observe(seconds)
}

// DialogueMetrics covers whole turns and the model round trips inside them.
type DialogueMetrics struct {
	turnsTotal   *prometheus.CounterVec
	turnLatency  prometheus.Histogram
	modelLatency *prometheus.HistogramVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Conversation turns by outcome",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "End to end latency of a conversation turn",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "model_latency_seconds",
			Help:      "Latency of model round trips",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"round"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.modelLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.Observe(seconds)
}

// ObserveModelCall records one round trip; round is "initial" or "final".
func (m *DialogueMetrics) ObserveModelCall(round string, seconds float64) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(round).Observe(seconds)
}
