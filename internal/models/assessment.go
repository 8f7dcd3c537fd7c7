package models

import "time"

// RiskCategory 风险类别
type RiskCategory string

const (
	RiskLow      RiskCategory = "LOW"
	RiskModerate RiskCategory = "MODERATE"
	RiskHigh     RiskCategory = "HIGH"
	RiskCritical RiskCategory = "CRITICAL"
)

// PatternMatch 检测到的临床恶化模式
type PatternMatch struct {
	PatternName      string   `json:"pattern_name"`
	Confidence       float64  `json:"confidence"` // 匹配比例 × 严重度，范围 [0, severity]
	Description      string   `json:"description"`
	MatchingCriteria []string `json:"matching_criteria"`
}

// ClinicalReasoning 临床解释（由推理生成器产出）
type ClinicalReasoning struct {
	Severity                    string   `json:"severity"`
	PrimaryConcern              string   `json:"primary_concern"`
	PhysiologicalInterpretation string   `json:"physiological_interpretation"`
	TimelineEstimate            string   `json:"timeline_estimate,omitempty"`
	ContributingFactors         []string `json:"contributing_factors"`
}

// SuggestedAction 推荐的临床操作
type SuggestedAction struct {
	Action            string `json:"action"`
	Priority          int    `json:"priority"` // 1（最高）~5
	Rationale         string `json:"rationale"`
	ProtocolReference string `json:"protocol_reference,omitempty"`
}

// MLOutput ML 评分器输出契约
type MLOutput struct {
	ModelName      string    `json:"model_name"`
	Task           string    `json:"task"`
	RiskScore      float64   `json:"risk_score"` // [0,1]
	Confidence     float64   `json:"confidence"` // [0,1]
	PredictionTime time.Time `json:"prediction_time"`
}

// 结构化更新的状态
const (
	UpdateStatusOK               = "ok"
	UpdateStatusInsufficientData = "insufficient_data"
)

// DashboardUpdate 每次评估产出的结构化更新（下游传输/展示使用）
type DashboardUpdate struct {
	Type              string               `json:"type"` // "vitals_update"
	Status            string               `json:"status"`
	PatientID         string               `json:"patient_id"`
	Timestamp         time.Time            `json:"timestamp"`
	RiskScore         float64              `json:"risk_score"`
	RiskCategory      RiskCategory         `json:"risk_category"`
	Vitals            VitalSigns           `json:"vitals"`
	RiskHistory       []RiskPoint          `json:"risk_history"`
	VitalTrends       map[string][]float64 `json:"vital_trends"`
	TrendTimestamps   []time.Time          `json:"trend_timestamps"`
	Patterns          []PatternMatch       `json:"patterns"`
	Reasoning         *ClinicalReasoning   `json:"reasoning,omitempty"`
	Alert             *Alert               `json:"alert,omitempty"`
	FeatureImportance map[string]float64   `json:"feature_importance"`
	MLOutput          *MLOutput            `json:"ml_output,omitempty"`
}
