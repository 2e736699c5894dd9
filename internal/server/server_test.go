package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artyomia/marketingganttai/internal/metrics"
	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/artyomia/marketingganttai/internal/report"
	"github.com/artyomia/marketingganttai/internal/store"
	"github.com/artyomia/marketingganttai/internal/timeline"
	"github.com/artyomia/marketingganttai/internal/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockStore implements store.Store for handler tests.
type MockStore struct {
	mu        sync.Mutex
	tasks     []model.Task
	CreateErr error
}

func (m *MockStore) List(ctx context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task(nil), m.tasks...), nil
}

func (m *MockStore) Create(ctx context.Context, d store.Draft) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return model.Task{}, m.CreateErr
	}
	r := store.NewRecord(d)
	r.ID = fmt.Sprintf("new-%d", len(m.tasks)+1)
	m.tasks = append(m.tasks, r.Task())
	return r.Task(), nil
}

func (m *MockStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	return task, nil
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *MockStore) Close() error { return nil }

// MockGenerator implements planner.Generator.
type MockGenerator struct {
	Drafts []model.PlanDraft
	Err    error
}

func (m MockGenerator) Generate(ctx context.Context, description string, start model.Date) ([]model.PlanDraft, error) {
	return m.Drafts, m.Err
}

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func seedTask() model.Task {
	return model.Task{
		ID:        "t1",
		Name:      "Spring newsletter",
		StartDate: model.MustParseDate("2024-06-14"),
		EndDate:   model.MustParseDate("2024-06-17"),
		Category:  "Content",
		Status:    model.StatusInProgress,
		Assignees: []string{"Tu"},
		Progress:  40,
	}
}

func newTestServer(t *testing.T, s *MockStore, gen MockGenerator) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tr := tracker.New(s, gen, tracker.Options{
		StrictValidation: true,
		Now:              func() time.Time { return testNow },
		Recorder:         m,
	})
	require.NoError(t, tr.Load(context.Background()))
	return New(tr, m, reg), reg
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{}, MockGenerator{})

	w := do(t, srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListTasks(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{})

	w := do(t, srv, http.MethodGet, "/api/tasks", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"startDate":"2024-06-14"`)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	assert.Equal(t, []model.Task{seedTask()}, tasks)
}

func TestListTasksEmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{}, MockGenerator{})

	w := do(t, srv, http.MethodGet, "/api/tasks", nil)

	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestGetTask(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{})

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/tasks/t1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/tasks/nope", nil).Code)
}

func TestCreateTask(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{}, MockGenerator{})

	w := do(t, srv, http.MethodPost, "/api/tasks", nil)

	require.Equal(t, http.StatusCreated, w.Code)
	var task model.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(t, "new-1", task.ID)
	assert.Equal(t, "New Task", task.Name)
	assert.Equal(t, "2024-06-15", task.StartDate.String())
	assert.Equal(t, "2024-06-16", task.EndDate.String())
}

func TestCreateTaskStoreFailure(t *testing.T) {
	srv, reg := newTestServer(t, &MockStore{CreateErr: errors.New("insert failed")}, MockGenerator{})

	w := do(t, srv, http.MethodPost, "/api/tasks", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1.0, counterValue(t, reg, "marketingganttai_store_errors_total", "op", "create"))
}

func TestUpdateTask(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{})

	edited := seedTask()
	edited.ID = "ignored"
	edited.Status = model.StatusDone
	edited.Progress = 100
	w := do(t, srv, http.MethodPut, "/api/tasks/t1", edited)

	require.Equal(t, http.StatusOK, w.Code)
	var saved model.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.Equal(t, "t1", saved.ID)
	assert.Equal(t, model.StatusDone, saved.Status)
}

func TestUpdateTaskErrors(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{})

	invalid := seedTask()
	invalid.EndDate = model.MustParseDate("2024-06-01")
	w := do(t, srv, http.MethodPut, "/api/tasks/t1", invalid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "end date is before start date")

	w = do(t, srv, http.MethodPut, "/api/tasks/unknown", seedTask())
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/t1", strings.NewReader(`{"startDate":"June 1st"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTask(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{})

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/tasks/t1", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/tasks/t1", nil).Code)
}

func TestTimeline(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{})

	w := do(t, srv, http.MethodGet, "/api/timeline", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var layout timeline.Layout
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &layout))
	assert.Equal(t, "2024-06-12", layout.Window.Start.String())
	assert.Equal(t, 48, layout.Window.TotalDays)
	require.Len(t, layout.Groups, 1)
	assert.Equal(t, 100.0, layout.Groups[0].Bars[0].Left)
	assert.Equal(t, 150.0, layout.Groups[0].Bars[0].Width)
	require.NotNil(t, layout.NowOffset)
	assert.InDelta(t, 175.0, *layout.NowOffset, 1e-9)
}

func TestTimelineNowParameter(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{}, MockGenerator{})

	w := do(t, srv, http.MethodGet, "/api/timeline?now=2025-01-10T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var layout timeline.Layout
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &layout))
	assert.Equal(t, "2025-01-07", layout.Window.Start.String())

	w = do(t, srv, http.MethodGet, "/api/timeline?now=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{})

	w := do(t, srv, http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var s report.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 40, s.AverageProgress)
	assert.Equal(t, []report.Count{{Name: "Content", Value: 1, Color: "#a855f7"}}, s.Categories)
}

func TestPlan(t *testing.T) {
	gen := MockGenerator{Drafts: []model.PlanDraft{
		{Name: "Brief", StartOffsetDays: 0, DurationDays: 2, Category: "Planning", Assignees: []string{"Tuan"}},
	}}
	srv, reg := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, gen)

	w := do(t, srv, http.MethodPost, "/api/plan", gin.H{"description": "Autumn sale", "startDate": "2024-09-01"})

	require.Equal(t, http.StatusOK, w.Code)
	var tasks []model.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "2024-09-03", tasks[0].EndDate.String())

	list := do(t, srv, http.MethodGet, "/api/tasks", nil)
	assert.NotContains(t, list.Body.String(), "Spring newsletter", "plan replaces the list")
	assert.Equal(t, 1.0, counterValue(t, reg, "marketingganttai_plan_generations_total", "success", "true"))
}

func TestPlanFailure(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{tasks: []model.Task{seedTask()}}, MockGenerator{Err: errors.New("quota")})

	w := do(t, srv, http.MethodPost, "/api/plan", gin.H{"description": "Autumn sale", "startDate": "2024-09-01"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Failed to generate project plan. Please try again."}`, w.Body.String())
	assert.Contains(t, do(t, srv, http.MethodGet, "/api/tasks", nil).Body.String(), "Spring newsletter")
}

func TestPlanBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{}, MockGenerator{})

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/plan", gin.H{"startDate": "2024-09-01"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/plan", gin.H{"description": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/plan",
		gin.H{"description": strings.Repeat("a", maxDescriptionSize+1), "startDate": "2024-09-01"}).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &MockStore{}, MockGenerator{})
	do(t, srv, http.MethodGet, "/api/tasks", nil)

	w := do(t, srv, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `marketingganttai_http_requests_total{method="GET",path="/api/tasks",status="200"} 1`)
}

// counterValue reads one labelled counter from reg.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
