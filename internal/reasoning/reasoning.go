package reasoning

import (
	"context"
	"fmt"

	"trisense-monitor/internal/models"
)

// 风险分档阈值（确定性分档，不在生成器内部改动分数）
const (
	riskLowThreshold      = 0.30
	riskModerateThreshold = 0.60
)

// riskBucket 风险分档标签
func riskBucket(score float64) string {
	switch {
	case score < riskLowThreshold:
		return "Low"
	case score < riskModerateThreshold:
		return "Moderate"
	default:
		return "High"
	}
}

// RuleBasedGenerator 确定性规则推理生成器
// 远端推理服务不可用或超时时使用：仅复述模型输出，不引入额外临床推断。
type RuleBasedGenerator struct{}

// NewRuleBasedGenerator 创建规则推理生成器
func NewRuleBasedGenerator() *RuleBasedGenerator {
	return &RuleBasedGenerator{}
}

// Generate 生成确定性模板解释
func (g *RuleBasedGenerator) Generate(ctx context.Context, mlOutput models.MLOutput) (models.ClinicalReasoning, error) {
	label := riskBucket(mlOutput.RiskScore)
	lower := lowerLabel(label)

	explanation := fmt.Sprintf(
		"The regression model produced a risk score of %.2f, indicating %s risk according to the model's learned patterns. The confidence of this prediction is %.0f%%. No additional clinical inference has been applied.",
		mlOutput.RiskScore, lower, mlOutput.Confidence*100,
	)

	return models.ClinicalReasoning{
		Severity:                    label + " Risk",
		PrimaryConcern:              fmt.Sprintf("Model-indicated %s risk", lower),
		PhysiologicalInterpretation: explanation,
		TimelineEstimate:            "As per model observation",
		ContributingFactors: []string{
			fmt.Sprintf("ML Confidence: %.0f%%", mlOutput.Confidence*100),
		},
	}, nil
}

func lowerLabel(label string) string {
	switch label {
	case "Low":
		return "low"
	case "Moderate":
		return "moderate"
	default:
		return "high"
	}
}
