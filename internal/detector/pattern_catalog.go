package detector

import "trisense-monitor/internal/models"

// PatternDefinition 临床恶化模式定义
type PatternDefinition struct {
	Name        string
	Description string
	Severity    float64           // 严重度权重 [0,1]
	Criteria    map[string]string // 体征名 → 期望定性状态
}

// clinicalPatterns 静态模式目录（启动时加载一次，只读共享）
var clinicalPatterns = []PatternDefinition{
	// 脓毒症
	{
		Name:        "early_sepsis",
		Description: "Early signs of sepsis with inflammatory response",
		Severity:    0.6,
		Criteria: map[string]string{
			models.VitalHeartRate:       StateIncreasing,
			models.VitalTemperature:     StateElevated,
			models.VitalRespiratoryRate: StateIncreasing,
			models.VitalSystolicBP:      "normal_or_decreasing",
		},
	},
	{
		Name:        "septic_shock",
		Description: "Septic shock with hemodynamic instability",
		Severity:    0.95,
		Criteria: map[string]string{
			models.VitalHeartRate:   StateVeryHigh,
			models.VitalSystolicBP:  StateVeryLow,
			models.VitalSpO2:        StateDecreasing,
			models.VitalTemperature: StateAbnormal,
		},
	},
	{
		Name:        "compensated_shock",
		Description: "Compensatory tachycardia with declining perfusion",
		Severity:    0.7,
		Criteria: map[string]string{
			models.VitalHeartRate:  StateHigh,
			models.VitalSystolicBP: StateDecreasing,
			models.VitalSpO2:       StateNormal,
		},
	},
	{
		Name:        "decompensated_shock",
		Description: "Decompensated shock with multi-organ stress",
		Severity:    0.9,
		Criteria: map[string]string{
			models.VitalHeartRate:       StateVeryHigh,
			models.VitalSystolicBP:      StateLow,
			models.VitalRespiratoryRate: StateHigh,
			models.VitalSpO2:            StateDecreasing,
		},
	},

	// 呼吸系统
	{
		Name:        "respiratory_distress",
		Description: "Acute respiratory distress",
		Severity:    0.75,
		Criteria: map[string]string{
			models.VitalRespiratoryRate: StateVeryHigh,
			models.VitalSpO2:            StateDecreasing,
			models.VitalHeartRate:       StateHigh,
		},
	},
	{
		Name:        "hypoxemia",
		Description: "Progressive hypoxemia",
		Severity:    0.8,
		Criteria: map[string]string{
			models.VitalSpO2:            StateVeryLow,
			models.VitalRespiratoryRate: StateHigh,
			models.VitalHeartRate:       StateIncreasing,
		},
	},
	{
		Name:        "ards_precursor",
		Description: "Early ARDS pattern",
		Severity:    0.85,
		Criteria: map[string]string{
			models.VitalSpO2:            StateDecreasing,
			models.VitalRespiratoryRate: StateVeryHigh,
			models.VitalHeartRate:       StateHigh,
		},
	},

	// 心脏
	{
		Name:        "bradycardia_alert",
		Description: "Significant bradycardia with potential hemodynamic impact",
		Severity:    0.65,
		Criteria: map[string]string{
			models.VitalHeartRate:  StateVeryLow,
			models.VitalSystolicBP: StateDecreasing,
		},
	},
	{
		Name:        "tachycardia_persistent",
		Description: "Persistent tachycardia indicating stress",
		Severity:    0.5,
		Criteria: map[string]string{
			models.VitalHeartRate:   StateHigh,
			models.VitalTemperature: StateElevated,
		},
	},
	{
		Name:        "cardiac_arrest_precursor",
		Description: "Pre-arrest vital pattern",
		Severity:    1.0,
		Criteria: map[string]string{
			models.VitalHeartRate:  StateExtreme,
			models.VitalSystolicBP: StateVeryLow,
			models.VitalSpO2:       StateVeryLow,
		},
	},

	// 体温
	{
		Name:        "febrile_response",
		Description: "Febrile response with systemic impact",
		Severity:    0.45,
		Criteria: map[string]string{
			models.VitalTemperature:     StateHigh,
			models.VitalHeartRate:       StateElevated,
			models.VitalRespiratoryRate: StateElevated,
		},
	},
	{
		Name:        "hypothermia_warning",
		Description: "Hypothermia indicating poor perfusion",
		Severity:    0.7,
		Criteria: map[string]string{
			models.VitalTemperature: StateVeryLow,
			models.VitalHeartRate:   StateLow,
		},
	},

	// 血流动力学
	{
		Name:        "hypotension_progressive",
		Description: "Progressive hypotension",
		Severity:    0.75,
		Criteria: map[string]string{
			models.VitalSystolicBP:  StateDecreasing,
			models.VitalDiastolicBP: StateDecreasing,
			models.VitalHeartRate:   StateIncreasing,
		},
	},
	{
		Name:        "hypertensive_crisis",
		Description: "Hypertensive emergency",
		Severity:    0.8,
		Criteria: map[string]string{
			models.VitalSystolicBP:  StateVeryHigh,
			models.VitalDiastolicBP: StateVeryHigh,
			models.VitalHeartRate:   "variable",
		},
	},

	// 复合
	{
		Name:        "multi_organ_stress",
		Description: "Multiple organ systems showing stress",
		Severity:    0.85,
		Criteria: map[string]string{
			models.VitalHeartRate:       StateAbnormal,
			models.VitalSystolicBP:      StateAbnormal,
			models.VitalRespiratoryRate: StateAbnormal,
			models.VitalSpO2:            StateAbnormal,
			models.VitalTemperature:     StateAbnormal,
		},
	},
}
