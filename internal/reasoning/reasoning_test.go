package reasoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trisense-monitor/internal/models"
)

func TestRiskBucket(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.0, "Low"},
		{0.29, "Low"},
		{0.30, "Moderate"},
		{0.59, "Moderate"},
		{0.60, "High"},
		{1.0, "High"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, riskBucket(tt.score), "score %.2f", tt.score)
	}
}

func TestRuleBasedGenerator_LowRisk(t *testing.T) {
	g := NewRuleBasedGenerator()

	r, err := g.Generate(context.Background(), models.MLOutput{
		RiskScore:  0.12,
		Confidence: 0.70,
	})
	require.NoError(t, err)

	assert.Equal(t, "Low Risk", r.Severity)
	assert.Equal(t, "Model-indicated low risk", r.PrimaryConcern)
	assert.Equal(t,
		"The regression model produced a risk score of 0.12, indicating low risk according to the model's learned patterns. The confidence of this prediction is 70%. No additional clinical inference has been applied.",
		r.PhysiologicalInterpretation)
	assert.Equal(t, "As per model observation", r.TimelineEstimate)
	require.Len(t, r.ContributingFactors, 1)
	assert.Equal(t, "ML Confidence: 70%", r.ContributingFactors[0])
}

func TestRuleBasedGenerator_HighRisk(t *testing.T) {
	g := NewRuleBasedGenerator()

	r, err := g.Generate(context.Background(), models.MLOutput{
		RiskScore:  0.85,
		Confidence: 0.92,
	})
	require.NoError(t, err)

	assert.Equal(t, "High Risk", r.Severity)
	assert.Equal(t, "Model-indicated high risk", r.PrimaryConcern)
	assert.Contains(t, r.PhysiologicalInterpretation, "risk score of 0.85")
	assert.Contains(t, r.PhysiologicalInterpretation, "indicating high risk")
	assert.Contains(t, r.PhysiologicalInterpretation, "92%")
}

func TestRuleBasedGenerator_ModerateBoundary(t *testing.T) {
	g := NewRuleBasedGenerator()

	r, err := g.Generate(context.Background(), models.MLOutput{
		RiskScore:  0.30,
		Confidence: 0.70,
	})
	require.NoError(t, err)
	assert.Equal(t, "Moderate Risk", r.Severity)
}
