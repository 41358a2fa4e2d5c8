// Package metrics wires up the proxy's Prometheus registry: the
// teacher carries client_golang only as an indirect dependency (never
// imported), so every collector here is new, but the flat
// "one struct field per collector, one constructor" shape mirrors how
// the teacher groups its provider clients in internal/provider.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry groups every collector the proxy exposes under GET /metrics.
// Exported fields are incremented/observed directly by the Model Health
// Tracker (E), the OAuth Manager (D), and the Upstream Client (F).
type Registry struct {
	OAuthRefreshTotal    *prometheus.CounterVec
	OAuthTokenExpirySecs prometheus.Gauge
	ModelHealthState     *prometheus.GaugeVec
	UpstreamCallsTotal   *prometheus.CounterVec
	UpstreamCallDuration *prometheus.HistogramVec
	RetryAttemptsTotal   *prometheus.CounterVec
}

// New registers every collector against reg and returns the populated
// Registry. Pass prometheus.NewRegistry() in production and a fresh
// registry per test to avoid cross-test collector collisions.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		OAuthRefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gemini_proxy_oauth_refresh_total",
			Help: "Count of OAuth2 token refresh attempts by outcome.",
		}, []string{"outcome"}),

		OAuthTokenExpirySecs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gemini_proxy_oauth_token_expiry_seconds",
			Help: "Unix timestamp at which the current access token expires.",
		}),

		ModelHealthState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gemini_proxy_model_health_state",
			Help: "Current health state per model: 0=Healthy, 1=TransientRetry, 2=Terminal.",
		}, []string{"model"}),

		UpstreamCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gemini_proxy_upstream_calls_total",
			Help: "Count of upstream Gemini API calls by model, status, and stream/unary mode.",
		}, []string{"model", "status", "mode"}),

		UpstreamCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gemini_proxy_upstream_call_duration_seconds",
			Help:    "Upstream Gemini API call latency by model, status, and stream/unary mode.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model", "status", "mode"}),

		RetryAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gemini_proxy_retry_attempts_total",
			Help: "Count of Retry Engine retry attempts by reason.",
		}, []string{"reason"}),
	}
}

// RecordModelHealth mirrors the original's record_model_health call: the
// Model Health Tracker (E) invokes this on every state transition.
func (r *Registry) RecordModelHealth(model string, state int) {
	r.ModelHealthState.WithLabelValues(model).Set(float64(state))
}

// RecordUpstreamCall mirrors the original's per-call metrics threading
// through crate::metrics::*; the Upstream Client (F) invokes this once
// per completed call, successful or not.
func (r *Registry) RecordUpstreamCall(model, status, mode string, durationSeconds float64) {
	r.UpstreamCallsTotal.WithLabelValues(model, status, mode).Inc()
	r.UpstreamCallDuration.WithLabelValues(model, status, mode).Observe(durationSeconds)
}

// RecordRetryAttempt is invoked by the Retry Engine (C) each time it
// schedules a retry, tagged with the reason it decided to retry.
func (r *Registry) RecordRetryAttempt(reason string) {
	r.RetryAttemptsTotal.WithLabelValues(reason).Inc()
}

// RecordOAuthRefresh is invoked by the OAuth Manager (D) after every
// refresh attempt, successful or not.
func (r *Registry) RecordOAuthRefresh(outcome string) {
	r.OAuthRefreshTotal.WithLabelValues(outcome).Inc()
}
