package config

import (
	"os"
	"strconv"
	"time"
)

// Config 监测服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	// 监测服务特定配置
	Monitor struct {
		// 缓冲区配置
		Buffer struct {
			MaxSize     int // 每个患者保留的最大读数数量，默认 100
			WindowSize  int // 短窗口分析的读数数量，默认 6
			BaselineMin int // 建立基线所需的读数数量，默认 20
			MinReadings int // 运行评估所需的最小读数数量，默认 4
		}

		// Redis 缓存/流配置
		Cache struct {
			VitalsStream    string // 生命体征摄入流，如 "trisense:vitals"
			UpdateStream    string // 评估结果发布流，如 "trisense:updates"
			ConsumerGroup   string // 摄入流消费者组
			ConsumerName    string // 消费者实例名
			BatchSize       int64  // 单次读取的最大消息数，默认 10
			UpdateKeyPrefix string // 最新评估缓存键前缀，如 "trisense:patient:"
			UpdateSuffix    string // 最新评估缓存键后缀，如 ":latest"
			UpdateTTL       int    // 评估缓存 TTL（秒），默认 60
		}

		// 会话配置
		Session struct {
			StaleAfter time.Duration // 无更新超过该时长的会话被清理，默认 30 分钟
			SweepEvery time.Duration // 清理扫描间隔，默认 5 分钟
		}
	}

	// 外部评分/推理服务配置
	Scorer struct {
		BaseURL string        // ML 评分服务地址，空表示使用规则回退
		Timeout time.Duration // 单次调用超时，默认 3 秒
	}
	Reasoning struct {
		BaseURL string        // 推理生成服务地址，空表示使用模板回退
		Timeout time.Duration // 单次调用超时，默认 5 秒
	}

	// HTTP 服务配置
	HTTP struct {
		Addr string // 监听地址，默认 ":8080"
	}

	// MQTT 摄入配置
	Ingest struct {
		Enabled bool   // 是否启用 MQTT 摄入
		Topic   string // 订阅主题，如 "trisense/vitals/+"
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 从环境变量加载（默认值）
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "trisense")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "trisense-monitor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	// 缓冲区配置
	cfg.Monitor.Buffer.MaxSize = getEnvInt("BUFFER_MAX_SIZE", 100)
	cfg.Monitor.Buffer.WindowSize = getEnvInt("VITAL_WINDOW_SIZE", 6)
	cfg.Monitor.Buffer.BaselineMin = 20
	cfg.Monitor.Buffer.MinReadings = getEnvInt("MIN_READINGS", 4)

	// Redis 流/缓存配置
	cfg.Monitor.Cache.VitalsStream = getEnv("VITALS_STREAM", "trisense:vitals")
	cfg.Monitor.Cache.UpdateStream = getEnv("UPDATE_STREAM", "trisense:updates")
	cfg.Monitor.Cache.ConsumerGroup = getEnv("CONSUMER_GROUP", "trisense-monitor")
	cfg.Monitor.Cache.ConsumerName = getEnv("CONSUMER_NAME", "trisense-monitor-1")
	cfg.Monitor.Cache.BatchSize = int64(getEnvInt("CONSUMER_BATCH_SIZE", 10))
	cfg.Monitor.Cache.UpdateKeyPrefix = getEnv("CACHE_UPDATE_PREFIX", "trisense:patient:")
	cfg.Monitor.Cache.UpdateSuffix = ":latest"
	cfg.Monitor.Cache.UpdateTTL = 60

	// 会话配置
	cfg.Monitor.Session.StaleAfter = getEnvDuration("SESSION_STALE_AFTER", 30*time.Minute)
	cfg.Monitor.Session.SweepEvery = getEnvDuration("SESSION_SWEEP_EVERY", 5*time.Minute)

	// 外部服务配置
	cfg.Scorer.BaseURL = getEnv("SCORER_BASE_URL", "")
	cfg.Scorer.Timeout = getEnvDuration("SCORER_TIMEOUT", 3*time.Second)
	cfg.Reasoning.BaseURL = getEnv("REASONING_BASE_URL", "")
	cfg.Reasoning.Timeout = getEnvDuration("REASONING_TIMEOUT", 5*time.Second)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Ingest.Enabled = getEnv("MQTT_INGEST_ENABLED", "false") == "true"
	cfg.Ingest.Topic = getEnv("MQTT_INGEST_TOPIC", "trisense/vitals/+")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
