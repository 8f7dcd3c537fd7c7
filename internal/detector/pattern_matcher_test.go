package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trisense-monitor/internal/buffer"
	"trisense-monitor/internal/models"
)

func newTestBuffer(readings []models.VitalSigns) *buffer.PatientBuffer {
	buf := buffer.NewPatientBuffer("PAT-001", 100, 20)
	base := time.Now()
	for i, v := range readings {
		buf.Append(v, base.Add(time.Duration(i)*time.Minute))
	}
	return buf
}

func stableReading() models.VitalSigns {
	return models.VitalSigns{
		HeartRate:       75,
		SystolicBP:      120,
		DiastolicBP:     75,
		RespiratoryRate: 16,
		SpO2:            98,
		Temperature:     36.8,
	}
}

func TestPatternMatcher_SepticShockScenario(t *testing.T) {
	m := NewPatternMatcher(6, zap.NewNop())

	// 心动过速 + 严重低血压 + 血氧下滑 + 发热
	readings := make([]models.VitalSigns, 0, 6)
	spo2 := []float64{99, 97, 95, 93, 91, 89}
	for i := 0; i < 6; i++ {
		readings = append(readings, models.VitalSigns{
			HeartRate:       130,
			SystolicBP:      75,
			DiastolicBP:     55,
			RespiratoryRate: 26,
			SpO2:            spo2[i],
			Temperature:     39.2,
		})
	}
	buf := newTestBuffer(readings)

	matches := m.Detect(buf)
	require.NotEmpty(t, matches)

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match.PatternName)
		assert.Greater(t, match.Confidence, 0.0)
		assert.LessOrEqual(t, match.Confidence, 1.0)
		assert.NotEmpty(t, match.MatchingCriteria)
	}
	assert.Contains(t, names, "septic_shock")
	assert.Contains(t, names, "decompensated_shock")

	// 全部标准命中：置信度等于模式严重度，且列表按置信度降序
	assert.Equal(t, "septic_shock", matches[0].PatternName)
	assert.InDelta(t, 0.95, matches[0].Confidence, 0.001)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Confidence, matches[i].Confidence)
	}

	assert.InDelta(t, matches[0].Confidence, m.Contribution(matches), 0.001)
}

func TestPatternMatcher_NormalVitalsNoMatch(t *testing.T) {
	m := NewPatternMatcher(6, zap.NewNop())

	readings := make([]models.VitalSigns, 6)
	for i := range readings {
		readings[i] = stableReading()
	}
	buf := newTestBuffer(readings)

	matches := m.Detect(buf)
	assert.Empty(t, matches)
	assert.Equal(t, 0.0, m.Contribution(matches))
}

func TestPatternMatcher_RequiresMinimumReadings(t *testing.T) {
	m := NewPatternMatcher(6, zap.NewNop())

	buf := newTestBuffer([]models.VitalSigns{stableReading(), stableReading()})
	assert.Nil(t, m.Detect(buf))
}

func TestConditionMatches_SemanticGroups(t *testing.T) {
	// elevated 命中期望 high（临床容差）
	assert.True(t, conditionMatches(StateElevated, StateHigh))
	assert.True(t, conditionMatches(StateVeryLow, StateLow))
	assert.True(t, conditionMatches(StateNormal, "normal_or_decreasing"))
	assert.False(t, conditionMatches(StateLow, StateHigh))
	assert.False(t, conditionMatches(StateNormal, StateIncreasing))
}

func TestAnalyzeVitals_TrendOverrides(t *testing.T) {
	// 心率在正常区间内上升 10% 以上：提升为 increasing
	readings := []models.VitalSigns{}
	hrs := []float64{70, 73, 76, 79, 82, 85}
	for _, hr := range hrs {
		v := stableReading()
		v.HeartRate = hr
		readings = append(readings, v)
	}
	buf := newTestBuffer(readings)

	analysis := analyzeVitals(buf, 6)
	assert.Equal(t, StateIncreasing, analysis[models.VitalHeartRate])

	// 收缩压下降 10% 以上：无条件覆盖为 decreasing
	readings = nil
	sbps := []float64{120, 115, 112, 110, 107, 104}
	for _, sbp := range sbps {
		v := stableReading()
		v.SystolicBP = sbp
		readings = append(readings, v)
	}
	buf = newTestBuffer(readings)

	analysis = analyzeVitals(buf, 6)
	assert.Equal(t, StateDecreasing, analysis[models.VitalSystolicBP])
}
