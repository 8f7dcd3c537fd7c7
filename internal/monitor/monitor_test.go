package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trisense-monitor/internal/alert"
	"trisense-monitor/internal/consensus"
	"trisense-monitor/internal/detector"
	"trisense-monitor/internal/models"
	"trisense-monitor/internal/scorer"
	"trisense-monitor/internal/suggestion"
)

func newTestMonitor(t *testing.T) *Monitor {
	logger := zap.NewNop()
	coordinator := consensus.NewCoordinator(
		scorer.NewRuleBasedScorer(),
		nil,
		detector.NewPatternMatcher(6, logger),
		detector.NewDriftDetector(logger),
		detector.NewTrendForecaster(6, logger),
		suggestion.NewEngine(),
		alert.NewEscalator(logger),
		4,
		logger,
	)
	return NewMonitor(coordinator, 100, 20, logger)
}

func stableReading(patientID string, ts time.Time) models.VitalReading {
	return models.VitalReading{
		PatientID: patientID,
		Timestamp: ts,
		Vitals: models.VitalSigns{
			HeartRate:       75,
			SystolicBP:      120,
			DiastolicBP:     75,
			RespiratoryRate: 16,
			SpO2:            98,
			Temperature:     36.8,
		},
	}
}

func TestIngest_CreatesSessionAndAssesses(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	update := m.Ingest(ctx, stableReading("PAT-001", base))
	assert.Equal(t, models.UpdateStatusInsufficientData, update.Status)

	for i := 1; i < 4; i++ {
		update = m.Ingest(ctx, stableReading("PAT-001", base.Add(time.Duration(i)*time.Minute)))
	}

	assert.Equal(t, models.UpdateStatusOK, update.Status)
	assert.Equal(t, models.RiskLow, update.RiskCategory)
	assert.Equal(t, []string{"PAT-001"}, m.ActivePatients())
}

func TestIngest_ZeroTimestampDefaultsToNow(t *testing.T) {
	m := newTestMonitor(t)

	m.Ingest(context.Background(), models.VitalReading{
		PatientID: "PAT-001",
		Vitals:    models.VitalSigns{HeartRate: 75, SystolicBP: 120, SpO2: 98, RespiratoryRate: 16, Temperature: 36.8},
	})

	snap, ok := m.Snapshot("PAT-001")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC(), snap.LastUpdate, 5*time.Second)
}

func TestSnapshot(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// 未知患者
	_, ok := m.Snapshot("PAT-404")
	assert.False(t, ok)

	// 基线建立前
	for i := 0; i < 5; i++ {
		m.Ingest(ctx, stableReading("PAT-001", base.Add(time.Duration(i)*time.Minute)))
	}
	snap, ok := m.Snapshot("PAT-001")
	require.True(t, ok)
	assert.Equal(t, 5, snap.Readings)
	assert.False(t, snap.HasBaseline)
	assert.Nil(t, snap.Baseline)
	require.NotNil(t, snap.LatestVitals)
	assert.InDelta(t, 75.0, snap.LatestVitals.HeartRate, 0.001)
	// 第 4 次读数起每次评估都记录风险点
	assert.Len(t, snap.RiskHistory, 2)

	// 基线建立后
	for i := 5; i < 20; i++ {
		m.Ingest(ctx, stableReading("PAT-001", base.Add(time.Duration(i)*time.Minute)))
	}
	snap, ok = m.Snapshot("PAT-001")
	require.True(t, ok)
	assert.True(t, snap.HasBaseline)
	require.Contains(t, snap.Baseline, "heart_rate")
	assert.InDelta(t, 75.0, snap.Baseline["heart_rate"][0], 0.001)
}

func TestEndSession(t *testing.T) {
	m := newTestMonitor(t)

	m.Ingest(context.Background(), stableReading("PAT-001", time.Now().UTC()))
	require.Len(t, m.ActivePatients(), 1)

	m.EndSession("PAT-001")
	assert.Empty(t, m.ActivePatients())
	_, ok := m.Snapshot("PAT-001")
	assert.False(t, ok)

	// 不存在的会话是空操作
	m.EndSession("PAT-001")
	m.EndSession("PAT-404")
}

func TestSweepStale(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()

	m.Ingest(ctx, stableReading("PAT-OLD", time.Now().UTC().Add(-time.Hour)))
	m.Ingest(ctx, stableReading("PAT-NEW", time.Now().UTC()))

	swept := m.SweepStale(30 * time.Minute)

	assert.Equal(t, []string{"PAT-OLD"}, swept)
	assert.Equal(t, []string{"PAT-NEW"}, m.ActivePatients())
}

func TestSweepStale_ConcurrentWithIngest(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()

	// 清扫循环与摄入循环并发运行（-race 下验证缓冲区访问串行化）
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			m.Ingest(ctx, stableReading("PAT-001", time.Now().UTC()))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			m.SweepStale(time.Hour)
		}
	}()
	wg.Wait()

	snap, ok := m.Snapshot("PAT-001")
	require.True(t, ok)
	assert.Equal(t, 50, snap.Readings)
}

func TestIngest_ConcurrentPatients(t *testing.T) {
	m := newTestMonitor(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"PAT-001", "PAT-002", "PAT-003"} {
		wg.Add(1)
		go func(patientID string) {
			defer wg.Done()
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
			for i := 0; i < 10; i++ {
				m.Ingest(ctx, stableReading(patientID, base.Add(time.Duration(i)*time.Minute)))
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, []string{"PAT-001", "PAT-002", "PAT-003"}, m.ActivePatients())
	for _, id := range m.ActivePatients() {
		snap, ok := m.Snapshot(id)
		require.True(t, ok)
		assert.Equal(t, 10, snap.Readings)
	}
}
