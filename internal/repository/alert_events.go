package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trisense-monitor/internal/models"
)

// AlertEvent 持久化后的告警事件行
type AlertEvent struct {
	EventID     string          `json:"event_id"`
	PatientID   string          `json:"patient_id"`
	AlertLevel  string          `json:"alert_level"`
	Message     string          `json:"message"`
	RiskScore   float64         `json:"risk_score"`
	Reasoning   json.RawMessage `json:"reasoning"`
	Actions     json.RawMessage `json:"actions"`
	EscalateTo  json.RawMessage `json:"escalate_to"`
	TriggeredAt time.Time       `json:"triggered_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AlertEventsRepository 告警事件仓库
type AlertEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertEventsRepository 创建告警事件仓库
func NewAlertEventsRepository(db *sql.DB, logger *zap.Logger) *AlertEventsRepository {
	return &AlertEventsRepository{
		db:     db,
		logger: logger,
	}
}

// InsertAlert 持久化一条告警事件，返回生成的 event_id
func (r *AlertEventsRepository) InsertAlert(ctx context.Context, patientID string, alert *models.Alert) (string, error) {
	if patientID == "" {
		return "", fmt.Errorf("patient_id is required")
	}
	if alert == nil {
		return "", fmt.Errorf("alert is required")
	}

	reasoning, err := json.Marshal(alert.Reasoning)
	if err != nil {
		return "", fmt.Errorf("failed to marshal reasoning: %w", err)
	}
	actions, err := json.Marshal(alert.Actions)
	if err != nil {
		return "", fmt.Errorf("failed to marshal actions: %w", err)
	}
	escalateTo, err := json.Marshal(alert.EscalateTo)
	if err != nil {
		return "", fmt.Errorf("failed to marshal escalate_to: %w", err)
	}

	eventID := uuid.NewString()
	now := time.Now().UTC()

	query := `
		INSERT INTO alert_events (
			event_id,
			patient_id,
			alert_level,
			message,
			risk_score,
			reasoning,
			actions,
			escalate_to,
			triggered_at,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err = r.db.ExecContext(ctx,
		query,
		eventID,
		patientID,
		string(alert.Level),
		alert.Message,
		alert.RiskScore,
		reasoning,
		actions,
		escalateTo,
		alert.CreatedAt,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert alert event: %w", err)
	}

	r.logger.Info("Alert event persisted",
		zap.String("event_id", eventID),
		zap.String("patient_id", patientID),
		zap.String("alert_level", string(alert.Level)),
		zap.Float64("risk_score", alert.RiskScore),
	)

	return eventID, nil
}

// ListAlerts 按患者列出最近的告警事件（triggered_at 降序）
func (r *AlertEventsRepository) ListAlerts(ctx context.Context, patientID string, limit int) ([]AlertEvent, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT
			event_id,
			patient_id,
			alert_level,
			message,
			risk_score,
			reasoning,
			actions,
			escalate_to,
			triggered_at,
			created_at
		FROM alert_events
		WHERE patient_id = $1
		ORDER BY triggered_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert events: %w", err)
	}
	defer rows.Close()

	var events []AlertEvent
	for rows.Next() {
		var event AlertEvent
		if err := rows.Scan(
			&event.EventID,
			&event.PatientID,
			&event.AlertLevel,
			&event.Message,
			&event.RiskScore,
			&event.Reasoning,
			&event.Actions,
			&event.EscalateTo,
			&event.TriggeredAt,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert events: %w", err)
	}

	return events, nil
}
