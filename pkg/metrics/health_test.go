package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetTracker() {
	components = &tracker{
		components: make(map[string]componentState),
		startTime:  time.Now(),
	}
}

func registerCore(healthy bool) {
	RegisterComponent("store", true, "")
	RegisterComponent("registry", true, "")
	RegisterComponent("backend", healthy, "containerd dial failed")
}

func TestGetHealthAllHealthy(t *testing.T) {
	resetTracker()
	SetVersion("0.3.0")
	registerCore(true)
	RegisterComponent("host:h1", true, "")

	report := GetHealth()
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "0.3.0", report.Version)
	assert.Len(t, report.Components, 4)
	assert.Equal(t, "healthy", report.Components["host:h1"])
}

func TestGetHealthDeadHostDegradesOnly(t *testing.T) {
	resetTracker()
	registerCore(true)
	RegisterComponent("host:h1", true, "")
	UpdateComponent("host:h2", false, "connection refused")

	report := GetHealth()
	assert.Equal(t, "degraded", report.Status)
	assert.Equal(t, "unhealthy: connection refused", report.Components["host:h2"])
}

func TestGetHealthCoreFailureWinsOverDegraded(t *testing.T) {
	resetTracker()
	registerCore(false)
	RegisterComponent("host:h1", false, "connection refused")

	report := GetHealth()
	assert.Equal(t, "unhealthy", report.Status)
}

func TestGetReadinessAllCoreReady(t *testing.T) {
	resetTracker()
	registerCore(true)

	report := GetReadiness()
	assert.Equal(t, "ready", report.Status)
	assert.Empty(t, report.Message)
}

func TestGetReadinessMissingCore(t *testing.T) {
	resetTracker()
	RegisterComponent("store", true, "")

	report := GetReadiness()
	assert.Equal(t, "not_ready", report.Status)
	assert.Equal(t, "not registered", report.Components["registry"])
}

func TestGetReadinessIgnoresHostProbes(t *testing.T) {
	resetTracker()
	registerCore(true)
	UpdateComponent("host:h1", false, "connection refused")

	report := GetReadiness()
	assert.Equal(t, "ready", report.Status)
	assert.NotContains(t, report.Components, "host:h1")
}

func TestHealthHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		wantCode int
		wantBody string
	}{
		{
			name:     "healthy",
			setup:    func() { registerCore(true) },
			wantCode: http.StatusOK,
			wantBody: "healthy",
		},
		{
			name: "degraded host still serves 200",
			setup: func() {
				registerCore(true)
				UpdateComponent("host:h1", false, "connection refused")
			},
			wantCode: http.StatusOK,
			wantBody: "degraded",
		},
		{
			name:     "core failure serves 503",
			setup:    func() { registerCore(false) },
			wantCode: http.StatusServiceUnavailable,
			wantBody: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetTracker()
			tt.setup()

			rec := httptest.NewRecorder()
			HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var report Report
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, tt.wantBody, report.Status)
		})
	}
}

func TestReadyHandlerNotReadyBeforeEngineInit(t *testing.T) {
	resetTracker()

	rec := httptest.NewRecorder()
	ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "not_ready", report.Status)
	assert.Contains(t, report.Message, "waiting for")
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	resetTracker()

	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "alive", report.Status)
	assert.NotEmpty(t, report.Uptime)
}

func TestUpdateComponentOverwrites(t *testing.T) {
	resetTracker()
	RegisterComponent("backend", true, "")
	UpdateComponent("backend", false, "daemon went away")

	report := GetHealth()
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "unhealthy: daemon went away", report.Components["backend"])
}
