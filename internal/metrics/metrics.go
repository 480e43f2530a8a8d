// Package metrics provides Prometheus metrics for the workspace assistant.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ChatRequestsTotal *prometheus.CounterVec
	ChatDuration      prometheus.Histogram
	ChatRounds        prometheus.Histogram
	ModelCallsTotal   *prometheus.CounterVec
	ToolCallsTotal    *prometheus.CounterVec
	TokensTotal       *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ChatRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workspace_chat_requests_total",
				Help: "Total number of assistant chat requests by outcome.",
			},
			[]string{"status"},
		),
		ChatDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "workspace_chat_duration_seconds",
				Help:    "End-to-end assistant chat duration.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
		),
		ChatRounds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "workspace_chat_rounds",
				Help:    "Model calls per chat request.",
				Buckets: []float64{1, 2, 3, 4, 6, 8, 12},
			},
		),
		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workspace_model_calls_total",
				Help: "Total number of model completions by provider and status.",
			},
			[]string{"provider", "status"},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workspace_tool_calls_total",
				Help: "Total number of tool invocations by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workspace_llm_tokens_total",
				Help: "Tokens consumed by direction.",
			},
			[]string{"direction"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workspace_http_requests_total",
				Help: "HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workspace_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(m.ChatRequestsTotal)
	reg.MustRegister(m.ChatDuration)
	reg.MustRegister(m.ChatRounds)
	reg.MustRegister(m.ModelCallsTotal)
	reg.MustRegister(m.ToolCallsTotal)
	reg.MustRegister(m.TokensTotal)
	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.ErrorsTotal)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry exposes the underlying registry (for tests and custom collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordChat records the outcome of one chat request.
func (m *Metrics) RecordChat(status string, seconds float64, rounds int) {
	m.ChatRequestsTotal.WithLabelValues(status).Inc()
	m.ChatDuration.Observe(seconds)
	if rounds > 0 {
		m.ChatRounds.Observe(float64(rounds))
	}
}

// RecordModelCall increments the model call counter.
func (m *Metrics) RecordModelCall(provider, status string) {
	m.ModelCallsTotal.WithLabelValues(provider, status).Inc()
}

// RecordToolCall increments the tool call counter.
func (m *Metrics) RecordToolCall(tool, outcome string) {
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

// AddTokens accumulates token usage.
func (m *Metrics) AddTokens(input, output int) {
	m.TokensTotal.WithLabelValues("input").Add(float64(input))
	m.TokensTotal.WithLabelValues("output").Add(float64(output))
}

// RecordHTTP increments the HTTP request counter.
func (m *Metrics) RecordHTTP(method, route, code string) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}
