package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/seatwatch/internal/catalog"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/metrics"
	"github.com/ignite/seatwatch/internal/worker"
)

type fakePoller struct {
	running     bool
	lastSuccess time.Time
	last        *worker.CycleSummary
	snap        *catalog.Snapshot
}

func (f *fakePoller) IsRunning() bool                 { return f.running }
func (f *fakePoller) Stats() map[string]int64         { return map[string]int64{"total_cycles": 3} }
func (f *fakePoller) LastCycle() *worker.CycleSummary { return f.last }
func (f *fakePoller) LastSuccess() time.Time          { return f.lastSuccess }
func (f *fakePoller) Snapshot() *catalog.Snapshot     { return f.snap }

func newTestRouter(t *testing.T, p *fakePoller, redisClient *redis.Client) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics.NewPrometheus(reg, "seatwatch").ObserveCycle(metrics.CycleOK, time.Second)
	hc := NewHealthChecker(nil, redisClient, p, time.Minute)
	return SetupRoutes(hc, NewHandlers(p), reg)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot("2024-92", catalog.DefaultSafeWindow, []domain.Code{"00100", "00200", "00950", "03000"})
}

func TestHealth_Healthy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	h := newTestRouter(t, &fakePoller{running: true, lastSuccess: time.Now()}, client)
	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "up", status.Checks["redis"].Status)
	assert.Equal(t, "not configured", status.Checks["database"].Message)
	assert.Equal(t, "up", status.Checks["watcher"].Status)
}

func TestReadiness_StoppedPoller(t *testing.T) {
	h := newTestRouter(t, &fakePoller{running: false}, nil)
	rec := get(t, h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready":false`)
}

func TestReadiness_StaleCycleIsDegraded(t *testing.T) {
	h := newTestRouter(t, &fakePoller{running: true, lastSuccess: time.Now().Add(-time.Hour)}, nil)
	rec := get(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestLiveness(t *testing.T) {
	rec := get(t, newTestRouter(t, &fakePoller{}, nil), "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestStats(t *testing.T) {
	p := &fakePoller{
		running: true,
		last:    &worker.CycleSummary{ID: "c-1", Outcome: metrics.CycleOK},
		snap:    testSnapshot(),
	}
	rec := get(t, newTestRouter(t, p, nil), "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Running)
	assert.Equal(t, int64(3), body.Stats["total_cycles"])
	assert.Equal(t, "c-1", body.LastCycle.ID)
	assert.Equal(t, 4, body.Catalog.Codes)
	assert.Equal(t, 2, body.Catalog.Chunks)
}

func TestChunks(t *testing.T) {
	rec := get(t, newTestRouter(t, &fakePoller{snap: testSnapshot()}, nil), "/stats/chunks")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"query":"00100,00200,00950"`)
	assert.Contains(t, rec.Body.String(), `"query":"03000"`)

	rec = get(t, newTestRouter(t, &fakePoller{}, nil), "/stats/chunks")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestRouter(t, &fakePoller{}, nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `seatwatch_cycles_total{result="ok"} 1`))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5s", formatUptime(5*time.Second))
	assert.Equal(t, "2m 5s", formatUptime(125*time.Second))
	assert.Equal(t, "1d 1h 0m 0s", formatUptime(25*time.Hour))
}
