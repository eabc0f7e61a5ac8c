// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SerpentAI/selenium-respectful/internal/core/domain"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Limiter LimiterConfig
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type  string
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

type LimiterConfig struct {
	SafetyThreshold int
	WaitInterval    time.Duration
	WaitJitter      time.Duration
	WaitDeadline    time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}
	storageType := getEnv("STORAGE_TYPE", "redis")

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	limiterConfig, err := buildLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: server,
		Storage: StorageConfig{
			Type:  storageType,
			Redis: redisConfig,
		},
		Limiter: limiterConfig,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, domain.NewConfigError("invalid REDIS_PORT: %v", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, domain.NewConfigError("invalid REDIS_DB: %v", err)
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		Prefix:   getEnv("KEY_PREFIX", "RESPECTFUL"),
	}, nil
}

func buildLimiterConfig() (LimiterConfig, error) {
	threshold, err := strconv.Atoi(getEnv("SAFETY_THRESHOLD", "0"))
	if err != nil {
		return LimiterConfig{}, domain.NewConfigError("invalid SAFETY_THRESHOLD: %v", err)
	}
	if threshold < 0 {
		return LimiterConfig{}, domain.NewConfigError("SAFETY_THRESHOLD must be a non-negative integer, got %d", threshold)
	}

	intervalSeconds, err := strconv.Atoi(getEnv("WAIT_INTERVAL_SECONDS", "1"))
	if err != nil {
		return LimiterConfig{}, domain.NewConfigError("invalid WAIT_INTERVAL_SECONDS: %v", err)
	}
	if intervalSeconds <= 0 {
		return LimiterConfig{}, domain.NewConfigError("WAIT_INTERVAL_SECONDS must be positive, got %d", intervalSeconds)
	}

	jitterMillis, err := strconv.Atoi(getEnv("WAIT_JITTER_MS", "0"))
	if err != nil {
		return LimiterConfig{}, domain.NewConfigError("invalid WAIT_JITTER_MS: %v", err)
	}
	if jitterMillis < 0 {
		return LimiterConfig{}, domain.NewConfigError("WAIT_JITTER_MS must be non-negative, got %d", jitterMillis)
	}

	deadlineSeconds, err := strconv.Atoi(getEnv("WAIT_DEADLINE_SECONDS", "0"))
	if err != nil {
		return LimiterConfig{}, domain.NewConfigError("invalid WAIT_DEADLINE_SECONDS: %v", err)
	}
	if deadlineSeconds < 0 {
		return LimiterConfig{}, domain.NewConfigError("WAIT_DEADLINE_SECONDS must be non-negative, got %d", deadlineSeconds)
	}

	return LimiterConfig{
		SafetyThreshold: threshold,
		WaitInterval:    time.Duration(intervalSeconds) * time.Second,
		WaitJitter:      time.Duration(jitterMillis) * time.Millisecond,
		WaitDeadline:    time.Duration(deadlineSeconds) * time.Second,
	}, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
