package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var out []*dto.MetricFamily
	for _, f := range families {
		if f.GetName() == name {
			out = append(out, f)
		}
	}
	return out
}

func TestRecordModelHealthSetsGauge(t *testing.T) {
	r, reg := newTestRegistry(t)
	r.RecordModelHealth("gemini-3-flash-preview", 1)

	families := gather(t, reg, "gemini_proxy_model_health_state")
	require.Len(t, families, 1)
	require.Len(t, families[0].Metric, 1)
	assert.Equal(t, float64(1), families[0].Metric[0].GetGauge().GetValue())
}

func TestRecordUpstreamCallIncrementsCounterAndHistogram(t *testing.T) {
	r, reg := newTestRegistry(t)
	r.RecordUpstreamCall("gemini-3-flash-preview", "200", "unary", 0.42)

	counters := gather(t, reg, "gemini_proxy_upstream_calls_total")
	require.Len(t, counters, 1)
	assert.Equal(t, float64(1), counters[0].Metric[0].GetCounter().GetValue())

	histograms := gather(t, reg, "gemini_proxy_upstream_call_duration_seconds")
	require.Len(t, histograms, 1)
	assert.Equal(t, uint64(1), histograms[0].Metric[0].GetHistogram().GetSampleCount())
}

func TestRecordRetryAttemptIncrementsCounter(t *testing.T) {
	r, reg := newTestRegistry(t)
	r.RecordRetryAttempt("rate_limited")
	r.RecordRetryAttempt("rate_limited")

	counters := gather(t, reg, "gemini_proxy_retry_attempts_total")
	require.Len(t, counters, 1)
	assert.Equal(t, float64(2), counters[0].Metric[0].GetCounter().GetValue())
}

func TestRecordOAuthRefreshIncrementsCounterByOutcome(t *testing.T) {
	r, reg := newTestRegistry(t)
	r.RecordOAuthRefresh("success")
	r.RecordOAuthRefresh("failure")

	counters := gather(t, reg, "gemini_proxy_oauth_refresh_total")
	require.Len(t, counters, 1)
	require.Len(t, counters[0].Metric, 2)
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	r, reg := newTestRegistry(t)
	r.RecordModelHealth("gemini-3-flash-preview", 0)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "gemini_proxy_model_health_state")
}
