package detector

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/models"
)

// 匹配的最低标准比例：命中低于 60% 的模式不报告
const patternMatchThreshold = 0.6

// 模式匹配至少需要的缓冲读数数量
const patternMinReadings = 3

// PatternMatcher 模式匹配器
// 将最近窗口分类为定性状态，再与静态临床恶化模式目录做部分匹配。
// 无状态，可在所有患者评估间共享。
type PatternMatcher struct {
	patterns   []PatternDefinition
	windowSize int
	logger     *zap.Logger
}

// NewPatternMatcher 创建模式匹配器
func NewPatternMatcher(windowSize int, logger *zap.Logger) *PatternMatcher {
	return &PatternMatcher{
		patterns:   clinicalPatterns,
		windowSize: windowSize,
		logger:     logger,
	}
}

// Detect 检测所有匹配的临床模式，按置信度降序排列
// 缓冲区不足 3 条读数时返回空列表。
func (m *PatternMatcher) Detect(buf *buffer.PatientBuffer) []models.PatternMatch {
	if buf.Size() < patternMinReadings {
		return nil
	}

	analysis := analyzeVitals(buf, m.windowSize)

	var matches []models.PatternMatch
	for _, pattern := range m.patterns {
		if match, ok := m.checkPattern(pattern, analysis); ok {
			matches = append(matches, match)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	if len(matches) > 0 {
		m.logger.Debug("Clinical patterns detected",
			zap.String("patient_id", buf.PatientID()),
			zap.Int("match_count", len(matches)),
			zap.String("top_pattern", matches[0].PatternName),
			zap.Float64("top_confidence", matches[0].Confidence),
		)
	}

	return matches
}

// Contribution 对共识分数的贡献：匹配模式中的最高置信度，无匹配为 0
func (m *PatternMatcher) Contribution(matches []models.PatternMatch) float64 {
	if len(matches) == 0 {
		return 0
	}
	return matches[0].Confidence
}

// checkPattern 检查单个模式是否匹配
// 报告置信度 = 匹配比例 × 模式严重度。
func (m *PatternMatcher) checkPattern(pattern PatternDefinition, analysis map[string]string) (models.PatternMatch, bool) {
	var matched int
	var matchingCriteria []string

	for _, vital := range models.AllVitals {
		expected, ok := pattern.Criteria[vital]
		if !ok {
			continue
		}
		actual, ok := analysis[vital]
		if !ok {
			actual = StateNormal
		}
		if conditionMatches(actual, expected) {
			matched++
			matchingCriteria = append(matchingCriteria, fmt.Sprintf("%s: %s", vital, actual))
		}
	}

	fraction := float64(matched) / float64(len(pattern.Criteria))
	if fraction < patternMatchThreshold {
		return models.PatternMatch{}, false
	}

	return models.PatternMatch{
		PatternName:      pattern.Name,
		Confidence:       fraction * pattern.Severity,
		Description:      pattern.Description,
		MatchingCriteria: matchingCriteria,
	}, true
}
