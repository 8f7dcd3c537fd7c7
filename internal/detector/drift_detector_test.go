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

func baselineBuffer(t *testing.T) *buffer.PatientBuffer {
	t.Helper()
	buf := buffer.NewPatientBuffer("PAT-001", 100, 20)
	base := time.Now()
	for i := 0; i < 20; i++ {
		buf.Append(stableReading(), base.Add(time.Duration(i)*time.Minute))
	}
	require.True(t, buf.HasBaseline())
	return buf
}

func TestDriftDetector_ElevatedHeartRate(t *testing.T) {
	d := NewDriftDetector(zap.NewNop())
	buf := baselineBuffer(t)

	// 恒定基线的 std 被抬到 1.0：心率 +20 即 z=20
	v := stableReading()
	v.HeartRate = 95
	buf.Append(v, time.Now())

	result := d.Detect("PAT-001", buf)

	assert.InDelta(t, 20.0, result.Deviations[models.VitalHeartRate], 0.001)
	// 心率贡献已钳制到 min(|z|/3, 1)，权重 0.20
	assert.InDelta(t, 0.20, result.RiskScore, 0.001)
	assert.InDelta(t, 0.60, result.Confidence, 0.001)

	require.NotEmpty(t, result.Concerning)
	top := result.Concerning[0]
	assert.Equal(t, models.VitalHeartRate, top.Vital)
	assert.Equal(t, DriftCritical, top.Severity)
	assert.Equal(t, DirectionElevated, top.Direction)
}

func TestDriftDetector_NoBaselineNoSignal(t *testing.T) {
	d := NewDriftDetector(zap.NewNop())
	buf := buffer.NewPatientBuffer("PAT-002", 100, 20)
	buf.Append(stableReading(), time.Now())

	result := d.Detect("PAT-002", buf)

	assert.Empty(t, result.Deviations)
	assert.Equal(t, 0.0, result.RiskScore)
	assert.Contains(t, result.Reasoning, "within their established baseline")
}

func TestDriftDetector_CachedBaselineFallback(t *testing.T) {
	d := NewDriftDetector(zap.NewNop())

	// 第一次评估回填缓存
	buf := baselineBuffer(t)
	d.Detect("PAT-003", buf)

	// 新缓冲区尚无基线：回落到缓存基线
	fresh := buffer.NewPatientBuffer("PAT-003", 100, 20)
	v := stableReading()
	v.SystolicBP = 95
	fresh.Append(v, time.Now())

	result := d.Detect("PAT-003", fresh)
	assert.InDelta(t, -25.0, result.Deviations[models.VitalSystolicBP], 0.001)

	// Forget 之后缓存清空：完全无信号
	d.Forget("PAT-003")
	result = d.Detect("PAT-003", fresh)
	assert.Empty(t, result.Deviations)
	assert.Equal(t, 0.0, result.RiskScore)
}

func TestDriftDetector_SeverityBands(t *testing.T) {
	d := NewDriftDetector(zap.NewNop())

	assert.Equal(t, DriftNormal, d.Severity(1.0))
	assert.Equal(t, DriftMild, d.Severity(1.5))
	assert.Equal(t, DriftModerate, d.Severity(-2.2))
	assert.Equal(t, DriftSevere, d.Severity(2.5))
	assert.Equal(t, DriftCritical, d.Severity(-3.5))

	assert.Equal(t, DirectionElevated, d.Direction(0.6))
	assert.Equal(t, DirectionDecreased, d.Direction(-0.6))
	assert.Equal(t, DirectionStable, d.Direction(0.4))
}
