package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	_ "github.com/lib/pq"

	"trisense-monitor/internal/alert"
	"trisense-monitor/internal/config"
	"trisense-monitor/internal/consensus"
	"trisense-monitor/internal/consumer"
	"trisense-monitor/internal/detector"
	"trisense-monitor/internal/httpapi"
	"trisense-monitor/internal/ingest"
	"trisense-monitor/internal/monitor"
	"trisense-monitor/internal/reasoning"
	"trisense-monitor/internal/repository"
	"trisense-monitor/internal/scorer"
	"trisense-monitor/internal/suggestion"
	"trisense-monitor/pkg/database"
	"trisense-monitor/pkg/mqtt"
	redispkg "trisense-monitor/pkg/redis"
)

// MonitorService 监护服务（整合各层）
type MonitorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	logger      *zap.Logger

	// 各层组件
	coordinator    *consensus.Coordinator
	monitor        *monitor.Monitor
	cacheManager   *consumer.CacheManager
	dispatcher     *consumer.Dispatcher
	vitalsConsumer *consumer.VitalsConsumer
	mqttIngestor   *ingest.MQTTIngestor
	alertRepo      *repository.AlertEventsRepository
	hub            *httpapi.Hub
	httpServer     *httpapi.Server
}

// NewMonitorService 创建监护服务
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redispkg.NewRedisClient(&cfg.Redis)
	if err := redispkg.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 评估流水线组件
	var primaryScorer scorer.Scorer
	if cfg.Scorer.BaseURL != "" {
		primaryScorer = scorer.NewHTTPScorer(cfg.Scorer.BaseURL, cfg.Scorer.Timeout, logger)
	}
	var reasoner scorer.ReasoningGenerator
	if cfg.Reasoning.BaseURL != "" {
		reasoner = reasoning.NewHTTPGenerator(cfg.Reasoning.BaseURL, cfg.Reasoning.Timeout, logger)
	}

	windowSize := cfg.Monitor.Buffer.WindowSize
	coordinator := consensus.NewCoordinator(
		primaryScorer,
		reasoner,
		detector.NewPatternMatcher(windowSize, logger),
		detector.NewDriftDetector(logger),
		detector.NewTrendForecaster(windowSize, logger),
		suggestion.NewEngine(),
		alert.NewEscalator(logger),
		cfg.Monitor.Buffer.MinReadings,
		logger,
	)

	mon := monitor.NewMonitor(
		coordinator,
		cfg.Monitor.Buffer.MaxSize,
		cfg.Monitor.Buffer.BaselineMin,
		logger,
	)

	// 4. 分发与持久化
	alertRepo := repository.NewAlertEventsRepository(db, logger)
	cacheManager := consumer.NewCacheManager(cfg, redisClient, logger)
	hub := httpapi.NewHub(logger)
	dispatcher := consumer.NewDispatcher(cfg, redisClient, cacheManager, hub, alertRepo, logger)

	// 5. 摄入边界
	vitalsConsumer := consumer.NewVitalsConsumer(cfg, redisClient, mon, dispatcher, logger)

	var mqttClient *mqtt.Client
	var mqttIngestor *ingest.MQTTIngestor
	if cfg.Ingest.Enabled {
		mqttClient, err = mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mqtt broker: %w", err)
		}
		mqttIngestor = ingest.NewMQTTIngestor(cfg, mqttClient, redisClient, logger)
	}

	// 6. HTTP 服务
	handler := httpapi.NewMonitorHandler(mon, dispatcher, cacheManager, alertRepo, logger)
	router := httpapi.NewRouter(logger)
	router.RegisterMonitorRoutes(handler, hub)
	httpServer := httpapi.NewServer(cfg.HTTP.Addr, router, logger)

	return &MonitorService{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		mqttClient:     mqttClient,
		logger:         logger,
		coordinator:    coordinator,
		monitor:        mon,
		cacheManager:   cacheManager,
		dispatcher:     dispatcher,
		vitalsConsumer: vitalsConsumer,
		mqttIngestor:   mqttIngestor,
		alertRepo:      alertRepo,
		hub:            hub,
		httpServer:     httpServer,
	}, nil
}

// Start 启动服务（阻塞直到 ctx 取消或某个组件失败）
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting monitor service")

	errChan := make(chan error, 3)

	// 摄入流消费者
	go func() {
		if err := s.vitalsConsumer.Start(ctx); err != nil {
			errChan <- fmt.Errorf("vitals consumer: %w", err)
		}
	}()

	// 过期会话清扫
	go s.monitor.RunSweeper(ctx, s.config.Monitor.Session.SweepEvery, s.config.Monitor.Session.StaleAfter)

	// MQTT 摄入（可选）
	if s.mqttIngestor != nil {
		if err := s.mqttIngestor.Start(); err != nil {
			return fmt.Errorf("failed to start mqtt ingestor: %w", err)
		}
	}

	// HTTP 服务
	go func() {
		if err := s.httpServer.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return err
	}
}

// Stop 停止服务
func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping monitor service")

	ctx := context.Background()
	if err := s.httpServer.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop HTTP server",
			zap.Error(err),
		)
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
