package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest(http.MethodGet, "/api/tasks", http.StatusOK, 3*time.Millisecond)
	m.StoreError("create")
	m.StoreError("create")
	m.PlanGenerated(true)
	m.PlanGenerated(false)
	m.ObserveLayout(200 * time.Microsecond)

	rec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, want := range []string{
		`marketingganttai_http_requests_total{method="GET",path="/api/tasks",status="200"} 1`,
		`marketingganttai_store_errors_total{op="create"} 2`,
		`marketingganttai_plan_generations_total{success="true"} 1`,
		`marketingganttai_plan_generations_total{success="false"} 1`,
		`marketingganttai_layout_duration_seconds_count 1`,
		`marketingganttai_http_request_duration_seconds_count{method="GET",path="/api/tasks"} 1`,
	} {
		assert.True(t, strings.Contains(body, want), "missing %s", want)
	}
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
