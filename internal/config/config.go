package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	BotToken string

	// AdminPasswordHash is the bcrypt hash of the admin panel password
	AdminPasswordHash string

	Database DatabaseConfig
	Redis    RedisConfig

	// SessionTTL is how long an idle conversation survives in Redis
	SessionTTL time.Duration
	// HandlerTimeout bounds the processing of a single update
	HandlerTimeout time.Duration
	// LockWait bounds how long an event waits behind the same user's
	// previous event before being rejected
	LockWait time.Duration

	ThrottleWindow    time.Duration
	MessageBudget     int64
	CallbackBudget    int64
	QuizPassScore     float64
	BroadcastInterval time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:          os.Getenv("BOT_TOKEN"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "trainingbot"),
			User:     getEnv("DB_USER", "trainingbot"),
			Password: os.Getenv("DB_PASSWORD"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		HandlerTimeout:    time.Duration(getEnvInt("HANDLER_TIMEOUT_SECONDS", 15)) * time.Second,
		LockWait:          time.Duration(getEnvInt("LOCK_WAIT_SECONDS", 2)) * time.Second,
		ThrottleWindow:    time.Duration(getEnvInt("THROTTLE_WINDOW_SECONDS", 1)) * time.Second,
		MessageBudget:     int64(getEnvInt("THROTTLE_MESSAGES", 3)),
		CallbackBudget:    int64(getEnvInt("THROTTLE_CALLBACKS", 5)),
		QuizPassScore:     getEnvFloat("QUIZ_PASS_SCORE", 0.7),
		BroadcastInterval: time.Duration(getEnvInt("BROADCAST_INTERVAL_SECONDS", 15)) * time.Second,
	}

	// Validate required fields
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return cfg, nil
}

// DSN returns PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// Addr returns the Redis host:port address
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
