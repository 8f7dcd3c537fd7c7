package scorer

import (
	"context"
	"time"

	"trisense-monitor/internal/models"
)

// RuleBasedScorer 确定性规则回退评分器
// ML 评分服务不可用或超时时使用：对最新体征做阈值求和启发式。
type RuleBasedScorer struct {
	now func() time.Time
}

// NewRuleBasedScorer 创建规则回退评分器
func NewRuleBasedScorer() *RuleBasedScorer {
	return &RuleBasedScorer{now: time.Now}
}

// Score 阈值求和启发式评分
func (s *RuleBasedScorer) Score(ctx context.Context, features Features) (models.MLOutput, error) {
	risk := 0.0

	// 心动过速
	hr := features["heart_rate_latest"]
	if hr > 120 {
		risk += 0.20
	} else if hr > 100 {
		risk += 0.10
	}

	// 低血压
	sbp := features["systolic_bp_latest"]
	if sbp == 0 {
		sbp = 120
	}
	if sbp < 90 {
		risk += 0.25
	} else if sbp < 100 {
		risk += 0.15
	}

	// 低血氧
	spo2 := features["spo2_latest"]
	if spo2 == 0 {
		spo2 = 98
	}
	if spo2 < 88 {
		risk += 0.25
	} else if spo2 < 92 {
		risk += 0.15
	}

	// qSOFA
	if features["qsofa_score"] >= 2 {
		risk += 0.25
	}

	// 休克指数
	shockIdx := features["shock_index"]
	if shockIdx > 1.0 {
		risk += 0.20
	} else if shockIdx > 0.9 {
		risk += 0.10
	}

	// 体温异常
	temp := features["temperature_latest"]
	if temp == 0 {
		temp = 37.0
	}
	if temp > 38.5 || temp < 36.0 {
		risk += 0.10
	}

	if risk > 1.0 {
		risk = 1.0
	}

	return models.MLOutput{
		ModelName:      "rule-based-fallback",
		Task:           "sepsis_risk_regression",
		RiskScore:      risk,
		Confidence:     0.70,
		PredictionTime: s.now(),
	}, nil
}
