// Package telemetry holds the bridge's Prometheus collectors and the optional
// HTTP sidecar that exposes them.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for mcp_bridge_messages_total.
const (
	OutcomeLocal      = "local"
	OutcomeSuppressed = "suppressed"
	OutcomeForwarded  = "forwarded"
	OutcomeCached     = "cached"
	OutcomeError      = "error"
)

// Metrics records per-message bridge activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	messagesTotal   *prometheus.CounterVec
	forwardDuration *prometheus.HistogramVec
	backendStatus   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	probesTotal     *prometheus.CounterVec
}

// NewMetrics registers the bridge collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		messagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_bridge_messages_total",
			Help: "Inbound JSON-RPC messages by method and dispatch outcome.",
		}, []string{"method", "outcome"}),

		forwardDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcp_bridge_forward_duration_seconds",
			Help:    "Backend round-trip duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),

		backendStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_bridge_backend_responses_total",
			Help: "Backend HTTP responses by status code.",
		}, []string{"code"}),

		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_bridge_errors_total",
			Help: "JSON-RPC error responses by error code.",
		}, []string{"code"}),

		probesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mcp_bridge_probes_total",
			Help: "Backend connectivity probes by result.",
		}, []string{"result"}),
	}
}

// RecordMessage counts one inbound message.
func (m *Metrics) RecordMessage(method, outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(method, outcome).Inc()
}

// RecordForward records a backend round trip. code is 0 for transport failures.
func (m *Metrics) RecordForward(method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.forwardDuration.WithLabelValues(method).Observe(d.Seconds())
	label := "transport_error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.backendStatus.WithLabelValues(label).Inc()
}

// RecordError counts one JSON-RPC error response. code is empty when the
// error object came from the backend and carried no numeric code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "backend"
	}
	m.errorsTotal.WithLabelValues(code).Inc()
}

// RecordProbe records a connectivity probe result.
func (m *Metrics) RecordProbe(success bool) {
	if m == nil {
		return
	}
	if success {
		m.probesTotal.WithLabelValues("success").Inc()
	} else {
		m.probesTotal.WithLabelValues("failure").Inc()
	}
}
