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
)

// CacheManager Redis 缓存管理器（最新评估结果）
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// SetLatestUpdate 缓存患者最新一次评估结果（带 TTL）
func (c *CacheManager) SetLatestUpdate(ctx context.Context, update models.DashboardUpdate) error {
	key := c.updateKey(update.PatientID)

	jsonData, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	ttl := time.Duration(c.config.Monitor.Cache.UpdateTTL) * time.Second
	if err := c.redisClient.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// GetLatestUpdate 读取患者最新一次评估结果
func (c *CacheManager) GetLatestUpdate(ctx context.Context, patientID string) (*models.DashboardUpdate, error) {
	key := c.updateKey(patientID)

	val, err := c.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("no cached update for patient: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var update models.DashboardUpdate
	if err := json.Unmarshal([]byte(val), &update); err != nil {
		return nil, fmt.Errorf("failed to unmarshal update: %w", err)
	}

	return &update, nil
}

func (c *CacheManager) updateKey(patientID string) string {
	return fmt.Sprintf("%s%s%s",
		c.config.Monitor.Cache.UpdateKeyPrefix,
		patientID,
		c.config.Monitor.Cache.UpdateSuffix,
	)
}
