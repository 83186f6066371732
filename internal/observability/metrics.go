package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec

	analyses        *prometheus.CounterVec
	analysisSteps   prometheus.Histogram
	analysisLatency prometheus.Histogram
	toolCalls       *prometheus.CounterVec
	llmRequests     *prometheus.CounterVec
	llmLatency      *prometheus.HistogramVec
	llmTokens       *prometheus.CounterVec
	safetyVerdicts  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticket_advisor_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_http_errors_total",
			Help: "HTTP errors by route, method and error code",
		}, []string{"path", "method", "code"}),
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_analyses_total",
			Help: "Ticket analyses by outcome",
		}, []string{"outcome"}),
		analysisSteps: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticket_advisor_analysis_steps",
			Help:    "Reasoning steps taken per analysis",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		analysisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ticket_advisor_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_tool_calls_total",
			Help: "Tool invocations by tool and status",
		}, []string{"tool", "status"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_llm_requests_total",
			Help: "Completion and embedding requests",
		}, []string{"model", "operation", "status"}),
		llmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ticket_advisor_llm_request_duration_seconds",
			Help:    "Completion and embedding latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"model", "operation"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_llm_tokens_total",
			Help: "Tokens consumed",
		}, []string{"model", "type"}),
		safetyVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_safety_verdicts_total",
			Help: "Safety classifier verdicts",
		}, []string{"verdict"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ticket_advisor_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		}, []string{"cache", "result"}),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordAnalysis tracks a finished analysis.
func (m *Metrics) RecordAnalysis(outcome string, steps int, duration time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(outcome).Inc()
	if steps > 0 {
		m.analysisSteps.Observe(float64(steps))
	}
	m.analysisLatency.Observe(duration.Seconds())
}

// RecordToolCall tracks one tool dispatch.
func (m *Metrics) RecordToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}

// RecordLLMCall tracks one completion or embedding request.
func (m *Metrics) RecordLLMCall(model, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(model, operation, status).Inc()
	m.llmLatency.WithLabelValues(model, operation).Observe(duration.Seconds())
}

// RecordTokens adds prompt and completion token usage.
func (m *Metrics) RecordTokens(model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.llmTokens.WithLabelValues(model, "prompt").Add(float64(prompt))
	m.llmTokens.WithLabelValues(model, "completion").Add(float64(completion))
}

// RecordSafetyVerdict counts classifier outcomes.
func (m *Metrics) RecordSafetyVerdict(verdict string) {
	if m == nil {
		return
	}
	m.safetyVerdicts.WithLabelValues(verdict).Inc()
}

// RecordCacheLookup counts hits and misses.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}
