package scorer

import (
	"context"

	"trisense-monitor/internal/models"
)

// Scorer ML 评分器边界（外部协作方）
// 核心只消费输出中的 risk_score / confidence 字段。
type Scorer interface {
	// Score 将特征向量转换为结构化评分输出
	Score(ctx context.Context, features Features) (models.MLOutput, error)
}

// ReasoningGenerator 推理生成器边界（外部协作方）
// 只接收 ML 输出，不接收原始检测器结果：解释必须可追溯到权威分数。
type ReasoningGenerator interface {
	Generate(ctx context.Context, mlOutput models.MLOutput) (models.ClinicalReasoning, error)
}
