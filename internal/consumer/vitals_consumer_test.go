package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trisense-monitor/internal/alert"
	"trisense-monitor/internal/config"
	"trisense-monitor/internal/consensus"
	"trisense-monitor/internal/detector"
	"trisense-monitor/internal/models"
	"trisense-monitor/internal/monitor"
	"trisense-monitor/internal/scorer"
	"trisense-monitor/internal/suggestion"
	rediscommon "trisense-monitor/pkg/redis"
)

type recordingBroadcaster struct {
	updates []models.DashboardUpdate
}

func (b *recordingBroadcaster) Broadcast(update models.DashboardUpdate) {
	b.updates = append(b.updates, update)
}

func setupConsumer(t *testing.T) (*miniredis.Miniredis, *VitalsConsumer, *monitor.Monitor, *recordingBroadcaster) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{}
	cfg.Monitor.Cache.VitalsStream = "trisense:vitals"
	cfg.Monitor.Cache.UpdateStream = "trisense:updates"
	cfg.Monitor.Cache.ConsumerGroup = "trisense-monitor"
	cfg.Monitor.Cache.ConsumerName = "trisense-monitor-1"
	cfg.Monitor.Cache.BatchSize = 10
	cfg.Monitor.Cache.UpdateKeyPrefix = "trisense:patient:"
	cfg.Monitor.Cache.UpdateSuffix = ":latest"
	cfg.Monitor.Cache.UpdateTTL = 60

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
	mon := monitor.NewMonitor(coordinator, 100, 20, logger)

	broadcaster := &recordingBroadcaster{}
	cacheManager := NewCacheManager(cfg, client, logger)
	dispatcher := NewDispatcher(cfg, client, cacheManager, broadcaster, nil, logger)

	return mr, NewVitalsConsumer(cfg, client, mon, dispatcher, logger), mon, broadcaster
}

func publishReading(t *testing.T, mr *miniredis.Miniredis, reading models.VitalReading) {
	jsonBytes, err := json.Marshal(reading)
	require.NoError(t, err)
	_, err = mr.XAdd("trisense:vitals", "*", []string{"data", string(jsonBytes)})
	require.NoError(t, err)
}

func TestVitalsConsumer_ConsumeOnce(t *testing.T) {
	mr, vc, mon, broadcaster := setupConsumer(t)
	ctx := context.Background()

	publishReading(t, mr, models.VitalReading{
		PatientID: "PAT-001",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Vitals: models.VitalSigns{
			HeartRate:       75,
			SystolicBP:      120,
			DiastolicBP:     75,
			RespiratoryRate: 16,
			SpO2:            98,
			Temperature:     36.8,
		},
	})

	require.NoError(t, rediscommon.CreateConsumerGroup(ctx, vc.redisClient, "trisense:vitals", "trisense-monitor"))
	require.NoError(t, vc.consumeOnce(ctx))

	// 读数进入了会话缓冲区
	snap, ok := mon.Snapshot("PAT-001")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Readings)

	// 评估结果广播给了 WebSocket 边界
	require.Len(t, broadcaster.updates, 1)
	assert.Equal(t, "PAT-001", broadcaster.updates[0].PatientID)
	assert.Equal(t, "insufficient_data", broadcaster.updates[0].Status)

	// 评估结果缓存到了 Redis
	assert.True(t, mr.Exists("trisense:patient:PAT-001:latest"))

	// 评估结果发布到了输出流
	assert.True(t, mr.Exists("trisense:updates"))
}

func TestVitalsConsumer_BadMessageDoesNotAbortBatch(t *testing.T) {
	mr, vc, mon, _ := setupConsumer(t)
	ctx := context.Background()

	_, err := mr.XAdd("trisense:vitals", "*", []string{"garbage", "true"})
	require.NoError(t, err)
	publishReading(t, mr, models.VitalReading{
		PatientID: "PAT-002",
		Vitals:    models.VitalSigns{HeartRate: 80, SystolicBP: 118, SpO2: 97, RespiratoryRate: 15, Temperature: 36.9},
	})

	require.NoError(t, rediscommon.CreateConsumerGroup(ctx, vc.redisClient, "trisense:vitals", "trisense-monitor"))
	require.NoError(t, vc.consumeOnce(ctx))

	_, ok := mon.Snapshot("PAT-002")
	assert.True(t, ok)
}

func TestParseReading(t *testing.T) {
	reading, err := parseReading(map[string]interface{}{
		"data": `{"patient_id":"PAT-001","vitals":{"heart_rate":75}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "PAT-001", reading.PatientID)
	assert.InDelta(t, 75.0, reading.Vitals.HeartRate, 0.001)
}

func TestParseReading_MissingDataField(t *testing.T) {
	_, err := parseReading(map[string]interface{}{"other": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing data field")
}

func TestParseReading_MissingPatientID(t *testing.T) {
	_, err := parseReading(map[string]interface{}{
		"data": `{"vitals":{"heart_rate":75}}`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing patient_id")
}

func TestParseReading_InvalidJSON(t *testing.T) {
	_, err := parseReading(map[string]interface{}{"data": "{not json"})
	assert.Error(t, err)
}
