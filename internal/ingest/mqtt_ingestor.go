package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trisense-monitor/internal/config"
	"trisense-monitor/internal/models"
	"trisense-monitor/pkg/mqtt"
	rediscommon "trisense-monitor/pkg/redis"
)

// MQTTIngestor 床旁设备 MQTT 摄入适配器
// 订阅体征主题，把设备上报规范化为标准读数后写入摄入流，
// 与 HTTP 摄入走同一条评估流水线。
type MQTTIngestor struct {
	config      *config.Config
	mqttClient  *mqtt.Client
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewMQTTIngestor 创建 MQTT 摄入适配器
func NewMQTTIngestor(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	redisClient *redis.Client,
	logger *zap.Logger,
) *MQTTIngestor {
	return &MQTTIngestor{
		config:      cfg,
		mqttClient:  mqttClient,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Start 订阅摄入主题
func (i *MQTTIngestor) Start() error {
	topic := i.config.Ingest.Topic
	if err := i.mqttClient.Subscribe(topic, i.config.MQTT.QoS, i.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe vitals topic: %w", err)
	}

	i.logger.Info("MQTT ingestor started",
		zap.String("topic", topic),
	)
	return nil
}

// handleMessage 处理单条设备上报
// 主题格式 trisense/vitals/<patient_id>；消息体缺 patient_id 时从主题补齐。
func (i *MQTTIngestor) handleMessage(topic string, payload []byte) error {
	var reading models.VitalReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return fmt.Errorf("failed to unmarshal vital reading: %w", err)
	}

	if reading.PatientID == "" {
		reading.PatientID = patientIDFromTopic(topic)
	}
	if reading.PatientID == "" {
		return fmt.Errorf("missing patient_id in topic %s", topic)
	}

	ctx := context.Background()
	if _, err := rediscommon.PublishJSONToStream(ctx, i.redisClient, i.config.Monitor.Cache.VitalsStream, reading); err != nil {
		return fmt.Errorf("failed to publish reading to stream: %w", err)
	}

	i.logger.Debug("Vital reading ingested from MQTT",
		zap.String("topic", topic),
		zap.String("patient_id", reading.PatientID),
	)
	return nil
}

func patientIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
