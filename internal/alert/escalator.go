package alert

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"trisense-monitor/internal/models"
)

// 每个患者保留的报警历史条数（仅用于冷却期查询，不对外展示）
const historyCap = 20

// 报警携带的建议操作上限
const maxActions = 5

// 各级别冷却期（低级别冷却期更长）
var cooldownPeriods = map[models.AlertLevel]time.Duration{
	models.AlertInfo:      600 * time.Second,
	models.AlertWarning:   300 * time.Second,
	models.AlertCritical:  120 * time.Second,
	models.AlertEmergency: 60 * time.Second,
}

// 各级别升级目标
var escalationTargets = map[models.AlertLevel][]string{
	models.AlertInfo:      {"Charge Nurse"},
	models.AlertWarning:   {"Primary Nurse", "Charge Nurse"},
	models.AlertCritical:  {"Attending Physician", "Rapid Response"},
	models.AlertEmergency: {"ICU Team", "Code Team"},
}

// 各级别期望响应时间
var responseTimes = map[models.AlertLevel]string{
	models.AlertInfo:      "Within shift",
	models.AlertWarning:   "Within 1 hour",
	models.AlertCritical:  "Within 15 min",
	models.AlertEmergency: "Immediate",
}

// historyEntry 报警历史条目
type historyEntry struct {
	level     models.AlertLevel
	timestamp time.Time
	riskScore float64
}

// Escalator 分级报警升级器
// 将风险分数映射为报警级别，并在冷却窗口内抑制同级别重复报警。
// 持有按患者键控的报警历史，历史访问加锁。
type Escalator struct {
	mu      sync.Mutex
	history map[string][]historyEntry
	logger  *zap.Logger
	now     func() time.Time // 测试注入
}

// NewEscalator 创建报警升级器
func NewEscalator(logger *zap.Logger) *Escalator {
	return &Escalator{
		history: make(map[string][]historyEntry),
		logger:  logger,
		now:     time.Now,
	}
}

// Generate 评估风险分数并在需要时生成报警
// 级别低于 INFO 阈值或处于同级别冷却期内时返回 nil（抑制）。
// 缺少推理/建议不是错误，只会让消息更短、操作列表为空。
func (e *Escalator) Generate(patientID string, riskScore float64, reasoning models.ClinicalReasoning, suggestions []models.SuggestedAction) *models.Alert {
	level, ok := determineLevel(riskScore)
	if !ok {
		return nil
	}

	if e.isOnCooldown(patientID, level) {
		e.logger.Debug("Alert suppressed by cooldown",
			zap.String("patient_id", patientID),
			zap.String("level", string(level)),
			zap.Float64("risk_score", riskScore),
		)
		return nil
	}

	actions := suggestions
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}

	a := &models.Alert{
		Level:        level,
		Message:      formatMessage(level, reasoning),
		RiskScore:    riskScore,
		Reasoning:    reasoning,
		Actions:      actions,
		EscalateTo:   escalationTargets[level],
		ResponseTime: responseTimes[level],
		CreatedAt:    e.now(),
	}

	e.record(patientID, a)

	e.logger.Info("Alert generated",
		zap.String("patient_id", patientID),
		zap.String("level", string(level)),
		zap.Float64("risk_score", riskScore),
	)

	return a
}

// Forget 丢弃某个患者的报警历史（会话结束时调用）
func (e *Escalator) Forget(patientID string) {
	e.mu.Lock()
	delete(e.history, patientID)
	e.mu.Unlock()
}

// determineLevel 风险分数到报警级别的固定分界点
func determineLevel(riskScore float64) (models.AlertLevel, bool) {
	switch {
	case riskScore >= 0.90:
		return models.AlertEmergency, true
	case riskScore >= 0.75:
		return models.AlertCritical, true
	case riskScore >= 0.50:
		return models.AlertWarning, true
	case riskScore >= 0.35:
		return models.AlertInfo, true
	}
	return "", false
}

// isOnCooldown 反向扫描历史：最近一条同级别条目落在冷却窗口内则抑制
// 只有最近一条同级别条目决定冷却，不同级别的条目不参与判断。
func (e *Escalator) isOnCooldown(patientID string, level models.AlertLevel) bool {
	cooldown, ok := cooldownPeriods[level]
	if !ok {
		cooldown = 300 * time.Second
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.history[patientID]
	now := e.now()
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].level == level {
			return now.Sub(entries[i].timestamp) < cooldown
		}
	}
	return false
}

// formatMessage 级别标记 + 主要临床关注点
func formatMessage(level models.AlertLevel, reasoning models.ClinicalReasoning) string {
	if reasoning.PrimaryConcern == "" {
		return fmt.Sprintf("[%s]", level)
	}
	return fmt.Sprintf("[%s] %s", level, reasoning.PrimaryConcern)
}

// record 记录已生成的报警，历史上限 20 条（淘汰最旧）
func (e *Escalator) record(patientID string, a *models.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := append(e.history[patientID], historyEntry{
		level:     a.Level,
		timestamp: a.CreatedAt,
		riskScore: a.RiskScore,
	})
	if len(entries) > historyCap {
		entries = entries[len(entries)-historyCap:]
	}
	e.history[patientID] = entries
}
