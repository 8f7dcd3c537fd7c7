package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trisense-monitor/internal/config"
	"trisense-monitor/internal/models"
	"trisense-monitor/internal/monitor"
	rediscommon "trisense-monitor/pkg/redis"
)

// VitalsConsumer 生命体征摄入流消费者
// 从 Redis Streams 读取读数，驱动评估流水线，评估结果交给分发器。
type VitalsConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	monitor     *monitor.Monitor
	dispatcher  *Dispatcher
	logger      *zap.Logger
}

// NewVitalsConsumer 创建摄入流消费者
func NewVitalsConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	mon *monitor.Monitor,
	dispatcher *Dispatcher,
	logger *zap.Logger,
) *VitalsConsumer {
	return &VitalsConsumer{
		config:      cfg,
		redisClient: redisClient,
		monitor:     mon,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Start 启动消费循环，ctx 取消时返回
func (c *VitalsConsumer) Start(ctx context.Context) error {
	stream := c.config.Monitor.Cache.VitalsStream
	group := c.config.Monitor.Cache.ConsumerGroup

	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, stream, group); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
	}

	c.logger.Info("Vitals consumer started",
		zap.String("stream", stream),
		zap.String("consumer_group", group),
		zap.String("consumer_name", c.config.Monitor.Cache.ConsumerName),
	)

	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.consumeOnce(ctx); err != nil {
				c.logger.Error("Failed to consume vitals stream",
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				backoffDuration = time.Second
			}
		}
	}
}

// consumeOnce 读取并处理一批消息
func (c *VitalsConsumer) consumeOnce(ctx context.Context) error {
	stream := c.config.Monitor.Cache.VitalsStream
	group := c.config.Monitor.Cache.ConsumerGroup

	messages, err := rediscommon.ReadFromStream(
		ctx,
		c.redisClient,
		stream,
		group,
		c.config.Monitor.Cache.ConsumerName,
		c.config.Monitor.Cache.BatchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream %s: %w", stream, err)
	}

	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process vitals message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			// 继续处理下一条消息，不中断
		}
		if err := rediscommon.AckMessage(ctx, c.redisClient, stream, group, msg.ID); err != nil {
			c.logger.Warn("Failed to ack message",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// processMessage 处理单条读数消息
func (c *VitalsConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	reading, err := parseReading(msg.Values)
	if err != nil {
		return fmt.Errorf("failed to parse vital reading: %w", err)
	}

	update := c.monitor.Ingest(ctx, reading)
	c.dispatcher.Distribute(ctx, update)

	return nil
}

// parseReading 从流消息还原读数
// 消息体为 "data" 字段中的 JSON（与 PublishJSONToStream 的写入格式对应）。
func parseReading(values map[string]interface{}) (models.VitalReading, error) {
	var reading models.VitalReading

	raw, ok := values["data"].(string)
	if !ok {
		return reading, fmt.Errorf("missing data field")
	}
	if err := json.Unmarshal([]byte(raw), &reading); err != nil {
		return reading, err
	}
	if reading.PatientID == "" {
		return reading, fmt.Errorf("missing patient_id")
	}
	return reading, nil
}
