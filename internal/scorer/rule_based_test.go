package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBasedScorer_StableVitals(t *testing.T) {
	s := NewRuleBasedScorer()

	out, err := s.Score(context.Background(), Features{
		"heart_rate_latest":  75,
		"systolic_bp_latest": 120,
		"spo2_latest":        98,
		"qsofa_score":        0,
		"shock_index":        0.625,
		"temperature_latest": 36.8,
	})
	require.NoError(t, err)

	assert.Equal(t, "rule-based-fallback", out.ModelName)
	assert.Equal(t, "sepsis_risk_regression", out.Task)
	assert.InDelta(t, 0.0, out.RiskScore, 0.001)
	assert.InDelta(t, 0.70, out.Confidence, 0.001)
	assert.False(t, out.PredictionTime.IsZero())
}

func TestRuleBasedScorer_SepticVitals(t *testing.T) {
	s := NewRuleBasedScorer()

	// 所有分支全部命中：0.20+0.25+0.15+0.25+0.20+0.10 = 1.15，封顶 1.0
	out, err := s.Score(context.Background(), Features{
		"heart_rate_latest":  130,
		"systolic_bp_latest": 75,
		"spo2_latest":        89,
		"qsofa_score":        3,
		"shock_index":        130.0 / 75.0,
		"temperature_latest": 39.2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.RiskScore, 0.001)
}

func TestRuleBasedScorer_ModerateVitals(t *testing.T) {
	s := NewRuleBasedScorer()

	// 心率 105（+0.10）、收缩压 95（+0.15）、休克指数 1.105（+0.20）
	out, err := s.Score(context.Background(), Features{
		"heart_rate_latest":  105,
		"systolic_bp_latest": 95,
		"spo2_latest":        96,
		"qsofa_score":        1,
		"shock_index":        105.0 / 95.0,
		"temperature_latest": 37.2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.45, out.RiskScore, 0.001)
}

func TestRuleBasedScorer_MissingFeaturesUseDefaults(t *testing.T) {
	s := NewRuleBasedScorer()

	// 缺失的收缩压/血氧/体温按正常值处理，不会误触发低值分支
	out, err := s.Score(context.Background(), Features{
		"heart_rate_latest": 75,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out.RiskScore, 0.001)
}

func TestRuleBasedScorer_InjectedClock(t *testing.T) {
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := &RuleBasedScorer{now: func() time.Time { return fixed }}

	out, err := s.Score(context.Background(), Features{})
	require.NoError(t, err)
	assert.Equal(t, fixed, out.PredictionTime)
}
