package consensus

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trisense-monitor/internal/alert"
	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/detector"
	"trisense-monitor/internal/models"
	"trisense-monitor/internal/reasoning"
	"trisense-monitor/internal/scorer"
	"trisense-monitor/internal/suggestion"
)

// 共识权重：ML 评分为主，三个检测器做监督贡献
var signalWeights = struct {
	ml      float64
	pattern float64
	drift   float64
	trend   float64
}{0.40, 0.25, 0.20, 0.15}

// 安全边际：任一信号超过此值时，共识分数不得低于其 90%
const safetyOverrideThreshold = 0.7

// 历史序列在结构化更新中的最大长度
const historyLimit = 50

// 单次更新携带的模式数量上限
const patternLimit = 3

// 特征重要度条目数
const topFeatureCount = 6

// Coordinator 多信号共识协调器
// 每次评估按固定顺序驱动特征装配、ML 评分、三个检测器、推理与告警，
// 合成单一共识风险分数并产出结构化更新。
// 本身无患者状态，按患者串行化由调用方（monitor）负责。
type Coordinator struct {
	scorer        scorer.Scorer
	fallbackScore scorer.Scorer
	reasoner      scorer.ReasoningGenerator
	fallbackGen   scorer.ReasoningGenerator
	patterns      *detector.PatternMatcher
	drift         *detector.DriftDetector
	trend         *detector.TrendForecaster
	suggestions   *suggestion.Engine
	escalator     *alert.Escalator
	minReadings   int
	logger        *zap.Logger
}

// NewCoordinator 创建共识协调器
// primary/reasoner 可为 nil（未配置远端服务时直接使用确定性回退）。
func NewCoordinator(
	primary scorer.Scorer,
	reasoner scorer.ReasoningGenerator,
	patterns *detector.PatternMatcher,
	drift *detector.DriftDetector,
	trend *detector.TrendForecaster,
	suggestions *suggestion.Engine,
	escalator *alert.Escalator,
	minReadings int,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		scorer:        primary,
		fallbackScore: scorer.NewRuleBasedScorer(),
		reasoner:      reasoner,
		fallbackGen:   reasoning.NewRuleBasedGenerator(),
		patterns:      patterns,
		drift:         drift,
		trend:         trend,
		suggestions:   suggestions,
		escalator:     escalator,
		minReadings:   minReadings,
		logger:        logger,
	}
}

// Assess 处理一次体征评估并产出结构化更新
// 调用方必须持有目标患者的会话锁。
func (c *Coordinator) Assess(ctx context.Context, buf *buffer.PatientBuffer) models.DashboardUpdate {
	timestamp := time.Now().UTC()
	patientID := buf.PatientID()

	latest, ok := buf.Latest()
	if !ok || buf.Size() < c.minReadings {
		return c.insufficientDataUpdate(patientID, latest, timestamp, buf.Size())
	}

	// 1. 特征装配
	features := scorer.AssembleFeatures(buf)

	// 2. ML 评分（失败降级到规则回退）
	mlOutput := c.score(ctx, patientID, features)

	// 3. 三个检测器
	patterns := c.patterns.Detect(buf)
	patternRisk := c.patterns.Contribution(patterns)
	driftResult := c.drift.Detect(patientID, buf)
	trendResult := c.trend.Forecast(buf)

	// 4. 共识合成
	consensusRisk := buildConsensus(mlOutput.RiskScore, patternRisk,
		driftResult.RiskScore, trendResult.RiskScore)

	// 5. 临床推理（仅基于 ML 输出）
	reasoning := c.reason(ctx, patientID, mlOutput)

	// 6. 操作建议
	suggestions := c.suggestions.Generate(patterns, consensusRisk)

	// 7. 告警判定
	alertOut := c.escalator.Generate(patientID, consensusRisk, reasoning, suggestions)

	// 8. 记录风险历史
	buf.AppendRiskScore(consensusRisk, timestamp)

	c.logger.Debug("Assessment completed",
		zap.String("patient_id", patientID),
		zap.Float64("consensus_risk", consensusRisk),
		zap.Float64("ml_risk", mlOutput.RiskScore),
		zap.Float64("pattern_risk", patternRisk),
		zap.Float64("drift_risk", driftResult.RiskScore),
		zap.Float64("trend_risk", trendResult.RiskScore),
		zap.Int("patterns", len(patterns)),
		zap.Bool("alerted", alertOut != nil),
	)

	trends, trendTimes := buf.VitalTrends(historyLimit)
	if len(patterns) > patternLimit {
		patterns = patterns[:patternLimit]
	}

	return models.DashboardUpdate{
		Type:              "vitals_update",
		Status:            models.UpdateStatusOK,
		PatientID:         patientID,
		Timestamp:         timestamp,
		RiskScore:         consensusRisk,
		RiskCategory:      Categorize(consensusRisk),
		Vitals:            latest,
		RiskHistory:       buf.RiskHistory(historyLimit),
		VitalTrends:       trends,
		TrendTimestamps:   trendTimes,
		Patterns:          patterns,
		Reasoning:         &reasoning,
		Alert:             alertOut,
		FeatureImportance: scorer.TopFeatures(features, topFeatureCount),
		MLOutput:          &mlOutput,
	}
}

// EndSession 释放协调器下各检测器持有的患者状态
func (c *Coordinator) EndSession(patientID string) {
	c.drift.Forget(patientID)
	c.escalator.Forget(patientID)
}

func (c *Coordinator) score(ctx context.Context, patientID string, features scorer.Features) models.MLOutput {
	if c.scorer != nil {
		out, err := c.scorer.Score(ctx, features)
		if err == nil {
			return out
		}
		c.logger.Warn("Primary scorer failed, using rule-based fallback",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
	}
	out, _ := c.fallbackScore.Score(ctx, features)
	return out
}

func (c *Coordinator) reason(ctx context.Context, patientID string, mlOutput models.MLOutput) models.ClinicalReasoning {
	if c.reasoner != nil {
		out, err := c.reasoner.Generate(ctx, mlOutput)
		if err == nil {
			return out
		}
		c.logger.Warn("Reasoning generator failed, using rule-based fallback",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
	}
	out, _ := c.fallbackGen.Generate(ctx, mlOutput)
	return out
}

// buildConsensus 加权合成 + 安全边际
// 任一信号 > 0.7 时共识分数不得低于该信号的 90%，最终钳制到 [0,1]。
func buildConsensus(mlRisk, patternRisk, driftRisk, trendRisk float64) float64 {
	weighted := mlRisk*signalWeights.ml +
		patternRisk*signalWeights.pattern +
		driftRisk*signalWeights.drift +
		trendRisk*signalWeights.trend

	maxRisk := mlRisk
	for _, r := range []float64{patternRisk, driftRisk, trendRisk} {
		if r > maxRisk {
			maxRisk = r
		}
	}
	if maxRisk > safetyOverrideThreshold {
		floor := maxRisk * 0.9
		if floor > weighted {
			weighted = floor
		}
	}

	if weighted > 1.0 {
		weighted = 1.0
	}
	if weighted < 0 {
		weighted = 0
	}
	return weighted
}

// Categorize 共识分数到风险类别
func Categorize(riskScore float64) models.RiskCategory {
	switch {
	case riskScore >= 0.80:
		return models.RiskCritical
	case riskScore >= 0.60:
		return models.RiskHigh
	case riskScore >= 0.35:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

func (c *Coordinator) insufficientDataUpdate(patientID string, latest models.VitalSigns, timestamp time.Time, size int) models.DashboardUpdate {
	c.logger.Debug("Insufficient data for assessment",
		zap.String("patient_id", patientID),
		zap.Int("readings", size),
		zap.Int("min_readings", c.minReadings),
	)
	return models.DashboardUpdate{
		Type:         "vitals_update",
		Status:       models.UpdateStatusInsufficientData,
		PatientID:    patientID,
		Timestamp:    timestamp,
		RiskScore:    0,
		RiskCategory: models.RiskLow,
		Vitals:       latest,
		RiskHistory:  []models.RiskPoint{},
		VitalTrends:  map[string][]float64{},
		Patterns:     []models.PatternMatch{},
	}
}
