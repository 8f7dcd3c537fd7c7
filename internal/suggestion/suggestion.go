package suggestion

import (
	"sort"

	"trisense-monitor/internal/models"
)

// 建议列表上限
const maxSuggestions = 8

// 未命中任何协议时触发通用高风险建议的分数阈值
const genericRiskThreshold = 0.7

// protocolAction 协议中的单个操作
type protocolAction struct {
	action    string
	priority  int
	reference string
}

// protocol 临床协议：由触发模式驱动的操作集合
type protocol struct {
	name            string
	triggerPatterns []string
	actions         []protocolAction
}

// protocols 静态协议目录（启动时加载一次，只读共享）
var protocols = []protocol{
	{
		name:            "sepsis_bundle",
		triggerPatterns: []string{"early_sepsis", "septic_shock"},
		actions: []protocolAction{
			{"Obtain blood cultures before antibiotics", 1, "Sepsis Bundle"},
			{"Administer broad-spectrum antibiotics within 1 hour", 1, "Hour-1 Bundle"},
			{"Measure serum lactate", 2, "Sepsis Workup"},
			{"Begin fluid resuscitation (30mL/kg crystalloid)", 2, "Fluid Therapy"},
			{"Re-assess volume status and tissue perfusion", 3, "Monitoring"},
		},
	},
	{
		name:            "respiratory_distress",
		triggerPatterns: []string{"respiratory_distress", "hypoxemia", "ards_precursor"},
		actions: []protocolAction{
			{"Increase supplemental oxygen, target SpO2 >94%", 1, "Oxygenation"},
			{"Obtain chest X-ray", 2, "Diagnostic"},
			{"Consider non-invasive ventilation if worsening", 2, "Ventilation"},
			{"Arterial blood gas analysis", 3, "Lab Work"},
		},
	},
	{
		name:            "shock_management",
		triggerPatterns: []string{"compensated_shock", "decompensated_shock"},
		actions: []protocolAction{
			{"Establish large-bore IV access", 1, "Access"},
			{"Initiate fluid bolus", 1, "Resuscitation"},
			{"Continuous cardiac monitoring", 2, "Monitoring"},
			{"Consider vasopressor support if fluid-refractory", 2, "Hemodynamics"},
		},
	},
	{
		name:            "cardiac_monitoring",
		triggerPatterns: []string{"bradycardia_alert", "tachycardia_persistent", "cardiac_arrest_precursor"},
		actions: []protocolAction{
			{"12-lead ECG immediately", 1, "Cardiac Workup"},
			{"Continuous telemetry monitoring", 1, "Monitoring"},
			{"Prepare defibrillator at bedside", 2, "Emergency Prep"},
			{"Review medications affecting heart rate", 3, "Med Review"},
		},
	},
}

// Engine 基于协议的临床操作建议引擎
// 无状态，可在所有患者评估间共享。
type Engine struct{}

// NewEngine 创建建议引擎
func NewEngine() *Engine {
	return &Engine{}
}

// Generate 根据命中的模式和共识分数生成建议
// 命中协议触发模式时输出协议操作；未命中且分数 ≥0.7 时输出通用高风险操作。
// 按优先级排序，上限 8 条。
func (e *Engine) Generate(patterns []models.PatternMatch, riskScore float64) []models.SuggestedAction {
	matched := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		matched[p.PatternName] = true
	}

	var suggestions []models.SuggestedAction
	for _, proto := range protocols {
		triggered := false
		for _, trigger := range proto.triggerPatterns {
			if matched[trigger] {
				triggered = true
				break
			}
		}
		if !triggered {
			continue
		}
		for _, a := range proto.actions {
			suggestions = append(suggestions, models.SuggestedAction{
				Action:            a.action,
				Priority:          a.priority,
				Rationale:         "Based on detected pattern",
				ProtocolReference: a.reference,
			})
		}
	}

	if riskScore >= genericRiskThreshold && len(suggestions) == 0 {
		suggestions = append(suggestions,
			models.SuggestedAction{Action: "Increase monitoring frequency to q15min", Priority: 2, Rationale: "High risk score"},
			models.SuggestedAction{Action: "Notify senior clinician", Priority: 1, Rationale: "Elevated risk"},
			models.SuggestedAction{Action: "Review recent labs and imaging", Priority: 3, Rationale: "Clinical assessment"},
		)
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}
