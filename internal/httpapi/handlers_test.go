package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trisense-monitor/internal/alert"
	"trisense-monitor/internal/config"
	"trisense-monitor/internal/consensus"
	"trisense-monitor/internal/consumer"
	"trisense-monitor/internal/detector"
	"trisense-monitor/internal/models"
	"trisense-monitor/internal/monitor"
	"trisense-monitor/internal/repository"
	"trisense-monitor/internal/scorer"
	"trisense-monitor/internal/suggestion"
)

type stubAlertLister struct {
	events []repository.AlertEvent
	err    error
}

func (s *stubAlertLister) ListAlerts(ctx context.Context, patientID string, limit int) ([]repository.AlertEvent, error) {
	return s.events, s.err
}

func setupTestRouter(t *testing.T) (*Router, *monitor.Monitor) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Monitor.Cache.UpdateStream = "trisense:updates"
	cfg.Monitor.Cache.UpdateKeyPrefix = "trisense:patient:"
	cfg.Monitor.Cache.UpdateSuffix = ":latest"
	cfg.Monitor.Cache.UpdateTTL = 60

	logger := zap.NewNop()
	coordinator := consensus.NewCoordinator(
		scorer.NewRuleBasedScorer(),
		nil,
		detector.NewPatternMatcher(6, logger),
		detector.NewDriftDetector(logger),
		detector.NewTrendForecaster(6, logger),
		suggestion.NewEngine(),
		alert.NewEscalator(logger),
		4,
		logger,
	)
	mon := monitor.NewMonitor(coordinator, 100, 20, logger)

	cacheManager := consumer.NewCacheManager(cfg, client, logger)
	dispatcher := consumer.NewDispatcher(cfg, client, cacheManager, nil, nil, logger)
	lister := &stubAlertLister{events: []repository.AlertEvent{
		{EventID: "evt-1", PatientID: "PAT-001", AlertLevel: "WARNING", RiskScore: 0.55},
	}}

	handler := NewMonitorHandler(mon, dispatcher, cacheManager, lister, logger)
	hub := NewHub(logger)
	router := NewRouter(logger)
	router.RegisterMonitorRoutes(handler, hub)

	return router, mon
}

func postVitals(t *testing.T, router *Router, patientID string, ts time.Time) *httptest.ResponseRecorder {
	reading := models.VitalReading{
		PatientID: patientID,
		Timestamp: ts,
		Vitals: models.VitalSigns{
			HeartRate:       75,
			SystolicBP:      120,
			DiastolicBP:     75,
			RespiratoryRate: 16,
			SpO2:            98,
			Temperature:     36.8,
		},
	}
	body, err := json.Marshal(reading)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vitals", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result
}

func TestPostVitals(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := postVitals(t, router, "PAT-001", time.Now().UTC())

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, float64(2000), result["code"])

	update := result["result"].(map[string]any)
	assert.Equal(t, "PAT-001", update["patient_id"])
	assert.Equal(t, "insufficient_data", update["status"])
}

func TestPostVitals_InvalidBody(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vitals", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, float64(-1), result["code"])
}

func TestPostVitals_MissingPatientID(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vitals", strings.NewReader(`{"vitals":{"heart_rate":75}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPatients(t *testing.T) {
	router, _ := setupTestRouter(t)
	postVitals(t, router, "PAT-001", time.Now().UTC())
	postVitals(t, router, "PAT-002", time.Now().UTC())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	patients := result["result"].(map[string]any)["patients"].([]any)
	assert.Equal(t, []any{"PAT-001", "PAT-002"}, patients)
}

func TestGetPatient(t *testing.T) {
	router, _ := setupTestRouter(t)
	postVitals(t, router, "PAT-001", time.Now().UTC())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/PAT-001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	resp := result["result"].(map[string]any)

	snapshot := resp["snapshot"].(map[string]any)
	assert.Equal(t, "PAT-001", snapshot["patient_id"])
	assert.Equal(t, float64(1), snapshot["readings"])

	// 分发器已把本次评估写入缓存
	assert.Contains(t, resp, "latest_update")
}

func TestGetPatient_NotFound(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/PAT-404", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPatientAlerts(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/PAT-001/alerts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	alerts := result["result"].(map[string]any)["alerts"].([]any)
	require.Len(t, alerts, 1)
	assert.Equal(t, "evt-1", alerts[0].(map[string]any)["event_id"])
}

func TestEndSessionEndpoint(t *testing.T) {
	router, mon := setupTestRouter(t)
	postVitals(t, router, "PAT-001", time.Now().UTC())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/patients/PAT-001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, mon.ActivePatients())
}

func TestHealth(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)
	assert.Equal(t, "ok", result["result"].(map[string]any)["status"])
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/vitals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPatientIDFromPath(t *testing.T) {
	tests := []struct {
		path     string
		wantID   string
		wantRest string
	}{
		{"/api/v1/patients/PAT-001", "PAT-001", ""},
		{"/api/v1/patients/PAT-001/alerts", "PAT-001", "alerts"},
		{"/api/v1/patients/", "", ""},
	}
	for _, tt := range tests {
		id, rest := patientIDFromPath(tt.path, "/api/v1/patients/")
		assert.Equal(t, tt.wantID, id, tt.path)
		assert.Equal(t, tt.wantRest, rest, tt.path)
	}
}
