package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	MaxUploadMB int
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

// RedisConfig selects the session backend. An empty Addr keeps sessions in process memory.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// KafkaConfig configures ledger event publishing. No brokers disables events and the restock worker.
type KafkaConfig struct {
	Brokers       []string
	TopicLedger   string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type BusinessConfig struct {
	RestockThreshold   int64
	AllowNegativeStock bool
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	sessionTTL, _ := strconv.Atoi(getEnv("SESSION_TTL_MINUTES", "120"))
	maxUpload, _ := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "32"))
	threshold, err := strconv.ParseInt(getEnv("RESTOCK_THRESHOLD", "10"), 10, 64)
	if err != nil {
		log.Printf("invalid RESTOCK_THRESHOLD, defaulting to 10: %v", err)
		threshold = 10
	}
	allowNegative, _ := strconv.ParseBool(getEnv("ALLOW_NEGATIVE_STOCK", "false"))

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Env:         getEnv("ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", ""),
			MaxUploadMB: maxUpload,
		},
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "sqlite"),
			URL:    getEnv("DATABASE_URL", "file:inventory.db?_pragma=busy_timeout(5000)"),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         redisDB,
			SessionTTL: time.Duration(sessionTTL) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicLedger:   getEnv("KAFKA_TOPIC_LEDGER_EVENTS", "ledger-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "restock-worker-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Business: BusinessConfig{
			RestockThreshold:   threshold,
			AllowNegativeStock: allowNegative,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, db=%s", cfg.Server.Env, cfg.Server.Port, cfg.Database.Driver)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
