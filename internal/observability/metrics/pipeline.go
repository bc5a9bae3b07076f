package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auditstack/docuquery/internal/core/domain"
)

// PipelineMetrics covers the document pipeline end to end: per-document
// processing on the worker side plus per-query outcomes. It satisfies
// ports.PipelineTelemetry so the usecases never import this package.
type PipelineMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec

	queriesTotal        *prometheus.CounterVec
	escalationsTotal    *prometheus.CounterVec
	validationMissTotal *prometheus.CounterVec
	llmTokensTotal      *prometheus.CounterVec

	service string
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dq",
			Subsystem: "pipeline",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dq",
			Subsystem: "pipeline",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dq",
			Subsystem: "pipeline",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dq",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document upload and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dq",
			Subsystem: "pipeline",
			Name:      "queries_total",
			Help:      "Total finalized audit trail entries by status.",
		},
		[]string{"service", "status"},
	)
	escalationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dq",
			Subsystem: "pipeline",
			Name:      "classification_escalations_total",
			Help:      "Total classification attempts escalated to a stronger model.",
		},
		[]string{"service"},
	)
	validationMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dq",
			Subsystem: "pipeline",
			Name:      "validation_miss_total",
			Help:      "Total answers rejected by a question validator.",
		},
		[]string{"service", "identifier"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dq",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model, by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		queueLag,
		queriesTotal,
		escalationsTotal,
		validationMissTotal,
		llmTokensTotal,
	)

	return &PipelineMetrics{
		registry:            registry,
		processTotal:        processTotal,
		processDuration:     processDuration,
		processInFlight:     processInFlight,
		queueLag:            queueLag,
		queriesTotal:        queriesTotal,
		escalationsTotal:    escalationsTotal,
		validationMissTotal: validationMissTotal,
		llmTokensTotal:      llmTokensTotal,
		service:             service,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *PipelineMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *PipelineMetrics) QueryFinalized(status domain.QueryStatus, model string, usage *domain.Usage) {
	m.queriesTotal.WithLabelValues(m.service, string(status)).Inc()

	if usage == nil {
		return
	}
	if model == "" {
		model = "unknown"
	}
	if usage.PromptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "in", model).Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "out", model).Add(float64(usage.CompletionTokens))
	}
}

func (m *PipelineMetrics) ClassificationEscalated() {
	m.escalationsTotal.WithLabelValues(m.service).Inc()
}

func (m *PipelineMetrics) ValidationMiss(identifier string) {
	m.validationMissTotal.WithLabelValues(m.service, identifier).Inc()
}
