package consumer

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"trisense-monitor/internal/config"
	"trisense-monitor/internal/models"
	rediscommon "trisense-monitor/pkg/redis"
)

// UpdateBroadcaster 评估结果的实时分发边界（WebSocket 等）
type UpdateBroadcaster interface {
	Broadcast(update models.DashboardUpdate)
}

// AlertStore 告警事件持久化边界
type AlertStore interface {
	InsertAlert(ctx context.Context, patientID string, alert *models.Alert) (string, error)
}

// Dispatcher 评估结果分发器
// 把一次结构化更新送往缓存、输出流、WebSocket 与告警存储；
// 摄入流消费者与 HTTP 摄入共用同一分发路径。
type Dispatcher struct {
	config       *config.Config
	redisClient  *redis.Client
	cacheManager *CacheManager
	broadcaster  UpdateBroadcaster
	alertStore   AlertStore
	logger       *zap.Logger
}

// NewDispatcher 创建分发器
// broadcaster/alertStore 可为 nil（对应分发环节跳过）。
func NewDispatcher(
	cfg *config.Config,
	redisClient *redis.Client,
	cacheManager *CacheManager,
	broadcaster UpdateBroadcaster,
	alertStore AlertStore,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:       cfg,
		redisClient:  redisClient,
		cacheManager: cacheManager,
		broadcaster:  broadcaster,
		alertStore:   alertStore,
		logger:       logger,
	}
}

// Distribute 把一次评估结果分发到所有下游
// 单个下游失败只记录告警，不影响其余下游。
func (d *Dispatcher) Distribute(ctx context.Context, update models.DashboardUpdate) {
	if err := d.cacheManager.SetLatestUpdate(ctx, update); err != nil {
		d.logger.Warn("Failed to cache latest update",
			zap.String("patient_id", update.PatientID),
			zap.Error(err),
		)
	}

	if _, err := rediscommon.PublishJSONToStream(ctx, d.redisClient, d.config.Monitor.Cache.UpdateStream, update); err != nil {
		d.logger.Warn("Failed to publish update to stream",
			zap.String("patient_id", update.PatientID),
			zap.Error(err),
		)
	}

	if d.broadcaster != nil {
		d.broadcaster.Broadcast(update)
	}

	if d.alertStore != nil && update.Alert != nil {
		if _, err := d.alertStore.InsertAlert(ctx, update.PatientID, update.Alert); err != nil {
			d.logger.Warn("Failed to persist alert event",
				zap.String("patient_id", update.PatientID),
				zap.Error(err),
			)
		}
	}
}
