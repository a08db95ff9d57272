package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config 服务配置
type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	MQTT struct {
		Broker   string
		ClientID string
		Username string
		Password string
		// Topic filter for bedside monitor readings, e.g. "vitals/+/reading"
		ReadingTopic string
		QoS          byte
	}

	HTTP struct {
		Addr string
	}

	Push struct {
		// Webhook gateway for real-time delivery; empty disables push.
		GatewayURL string
	}

	Cache struct {
		KeyPrefix    string // e.g. "vital-watch:patient:"
		LatestSuffix string // ":latest"
		AlertSuffix  string // ":alert"
		LatestTTL    int    // seconds
		AlertTTL     int    // seconds
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "mediwatch")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "mediwatch-vitals")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.ReadingTopic = getEnv("MQTT_READING_TOPIC", "vitals/+/reading")
	cfg.MQTT.QoS = 1

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Push.GatewayURL = getEnv("PUSH_GATEWAY_URL", "")

	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", "vital-watch:patient:")
	cfg.Cache.LatestSuffix = ":latest"
	cfg.Cache.AlertSuffix = ":alert"
	cfg.Cache.LatestTTL = getEnvInt("CACHE_LATEST_TTL", 300)
	cfg.Cache.AlertTTL = getEnvInt("CACHE_ALERT_TTL", 30)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// DSN 构建数据库连接字符串
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
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
