package models

import "time"

// AlertLevel 报警级别（按严重度递增）
type AlertLevel string

const (
	AlertInfo      AlertLevel = "INFO"
	AlertWarning   AlertLevel = "WARNING"
	AlertCritical  AlertLevel = "CRITICAL"
	AlertEmergency AlertLevel = "EMERGENCY"
)

// Rank 级别序号（用于比较，INFO 最低）
func (l AlertLevel) Rank() int {
	switch l {
	case AlertInfo:
		return 0
	case AlertWarning:
		return 1
	case AlertCritical:
		return 2
	case AlertEmergency:
		return 3
	}
	return -1
}

// Alert 临床报警
type Alert struct {
	Level        AlertLevel        `json:"level"`
	Message      string            `json:"message"`
	RiskScore    float64           `json:"risk_score"`
	Reasoning    ClinicalReasoning `json:"reasoning"`
	Actions      []SuggestedAction `json:"actions"`
	EscalateTo   []string          `json:"escalate_to"`
	ResponseTime string            `json:"response_time"`
	CreatedAt    time.Time         `json:"created_at"`
}
