package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort string
	Debug      bool

	// 计算服务
	SizingAPIHost         string
	SizingTimeout         time.Duration
	SizingBreakerFailures int
	SizingBreakerOpen     time.Duration
	SizingReadyTimeout    time.Duration

	// 会话
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration

	// 表单默认值
	RegionsFile         string
	DefaultRegion       string
	DefaultAutonomyDays string
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:            getEnv("PORT", "4000"),
		Debug:                 getEnvBool("DEBUG", false),
		SizingAPIHost:         getEnv("SIZING_API_HOST", "http://localhost:5000"),
		SizingTimeout:         getEnvDuration("SIZING_TIMEOUT", 30*time.Second),
		SizingBreakerFailures: getEnvInt("SIZING_BREAKER_FAILURES", 5),
		SizingBreakerOpen:     getEnvDuration("SIZING_BREAKER_OPEN", 30*time.Second),
		SizingReadyTimeout:    getEnvDuration("SIZING_READY_TIMEOUT", 30*time.Second),
		SessionIdleTimeout:    getEnvDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
		SessionSweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		RegionsFile:           getEnv("REGIONS_FILE", "regions.toml"),
		DefaultRegion:         getEnv("DEFAULT_REGION", "fortaleza"),
		DefaultAutonomyDays:   getEnv("DEFAULT_AUTONOMY_DAYS", "1"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
