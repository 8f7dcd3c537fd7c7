package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"trisense-monitor/internal/consumer"
	"trisense-monitor/internal/models"
	"trisense-monitor/internal/monitor"
	"trisense-monitor/internal/repository"
)

// AlertLister 告警历史查询边界
type AlertLister interface {
	ListAlerts(ctx context.Context, patientID string, limit int) ([]repository.AlertEvent, error)
}

// MonitorHandler 监护相关的 HTTP 处理器
type MonitorHandler struct {
	monitor      *monitor.Monitor
	dispatcher   *consumer.Dispatcher
	cacheManager *consumer.CacheManager
	alertLister  AlertLister
	logger       *zap.Logger
}

// NewMonitorHandler 创建监护处理器
// alertLister 可为 nil（未接数据库时告警历史接口返回空列表）。
func NewMonitorHandler(
	mon *monitor.Monitor,
	dispatcher *consumer.Dispatcher,
	cacheManager *consumer.CacheManager,
	alertLister AlertLister,
	logger *zap.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		monitor:      mon,
		dispatcher:   dispatcher,
		cacheManager: cacheManager,
		alertLister:  alertLister,
		logger:       logger,
	}
}

// PostVitals 同步摄入一条读数并返回本次评估结果
// POST /api/v1/vitals
func (h *MonitorHandler) PostVitals(w http.ResponseWriter, r *http.Request) {
	var reading models.VitalReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if reading.PatientID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("patient_id is required"))
		return
	}

	update := h.monitor.Ingest(r.Context(), reading)
	h.dispatcher.Distribute(r.Context(), update)

	writeJSON(w, http.StatusOK, Ok(update))
}

// ListPatients 当前有会话的患者
// GET /api/v1/patients
func (h *MonitorHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"patients": h.monitor.ActivePatients(),
	}))
}

// GetPatient 患者会话快照 + 最近一次评估
// GET /api/v1/patients/{id}
func (h *MonitorHandler) GetPatient(w http.ResponseWriter, r *http.Request, patientID string) {
	snap, ok := h.monitor.Snapshot(patientID)
	if !ok {
		writeJSON(w, http.StatusNotFound, Fail("patient not found"))
		return
	}

	resp := map[string]any{
		"snapshot": snap,
	}
	if update, err := h.cacheManager.GetLatestUpdate(r.Context(), patientID); err == nil {
		resp["latest_update"] = update
	}

	writeJSON(w, http.StatusOK, Ok(resp))
}

// GetPatientAlerts 患者最近的告警事件
// GET /api/v1/patients/{id}/alerts
func (h *MonitorHandler) GetPatientAlerts(w http.ResponseWriter, r *http.Request, patientID string) {
	if h.alertLister == nil {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"alerts": []any{}}))
		return
	}

	alerts, err := h.alertLister.ListAlerts(r.Context(), patientID, parseInt(r.URL.Query().Get("limit"), 20))
	if err != nil {
		h.logger.Error("Failed to list alert events",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list alerts"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{"alerts": alerts}))
}

// EndSession 结束患者会话
// DELETE /api/v1/patients/{id}
func (h *MonitorHandler) EndSession(w http.ResponseWriter, r *http.Request, patientID string) {
	h.monitor.EndSession(patientID)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// Health 健康检查
// GET /health
func (h *MonitorHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"status":          "ok",
		"active_patients": len(h.monitor.ActivePatients()),
	}))
}

// patientIDFromPath 从 /api/v1/patients/{id}[/...] 提取患者 ID
func patientIDFromPath(path, prefix string) (id string, rest string) {
	trimmed := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(strings.Trim(trimmed, "/"), "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}
