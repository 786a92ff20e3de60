package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
	BackendHTTP   = "http"
)

type Config struct {
	HTTPAddr          string
	GRPCAddr          string
	InventoryHTTPAddr string

	StorageBackend string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	MySQLDSN       string
	CartKey        string

	InventoryBackend  string
	InventoryURL      string
	InventoryTimeout  time.Duration
	InventorySeedFile string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	NoticeWorkers   int
	NoticeQueueSize int

	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:          getEnv("GRPC_ADDR", ":50051"),
		InventoryHTTPAddr: getEnv("INVENTORY_HTTP_ADDR", ":3333"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendRedis),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		MySQLDSN:       getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/rocketshoes?parseTime=true"),
		CartKey:        getEnv("CART_KEY", "@RocketShoes:cart"),

		InventoryBackend:  getEnv("INVENTORY_BACKEND", BackendHTTP),
		InventoryURL:      getEnv("INVENTORY_URL", "http://localhost:3333"),
		InventoryTimeout:  getEnvDuration("INVENTORY_TIMEOUT", 3*time.Second),
		InventorySeedFile: getEnv("INVENTORY_SEED_FILE", "server.json"),

		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		NoticeWorkers:   getEnvInt("NOTICE_WORKERS", 2),
		NoticeQueueSize: getEnvInt("NOTICE_QUEUE_SIZE", 1000),

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendRedis, BackendMySQL, BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.InventoryBackend {
	case BackendHTTP, BackendMySQL, BackendMemory:
	default:
		return fmt.Errorf("unknown INVENTORY_BACKEND %q", c.InventoryBackend)
	}

	if c.InventoryBackend == BackendHTTP && c.InventoryURL == "" {
		return errors.New("INVENTORY_URL is required for the http inventory backend")
	}
	if c.CartKey == "" {
		return errors.New("CART_KEY must not be empty")
	}
	if c.NoticeWorkers <= 0 {
		return fmt.Errorf("NOTICE_WORKERS must be positive, got %d", c.NoticeWorkers)
	}
	if c.NoticeQueueSize <= 0 {
		return fmt.Errorf("NOTICE_QUEUE_SIZE must be positive, got %d", c.NoticeQueueSize)
	}
	if c.RequestTimeout <= 0 || c.InventoryTimeout <= 0 || c.ShutdownTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
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
