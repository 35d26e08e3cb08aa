package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.TokenVerifications.WithLabelValues("ok").Inc()
	m.LoginEventFailures.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `identity_token_verifications_total{result="ok"} 1`))
	require.True(t, strings.Contains(body, "login_event_write_failures_total 1"))
	require.Contains(t, body, "# HELP identity_token_verifications_total Bearer token verifications by result (ok, invalid, unavailable, error).")
}

func TestRegisterIgnoresDuplicates(t *testing.T) {
	m := New()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_total", Help: "extra"})
	require.NoError(t, m.Register(c))
	require.NoError(t, m.Register(c))
	c.Inc()

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "extra_total" {
			found = true
			require.Equal(t, float64(1), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, found)
}
