// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// BSPConfig provides settings for the WhatsApp business solution provider.
type BSPConfig interface {
	GetBSPBaseURL() string
	GetBSPAPIKey() string
	GetBSPOrderTemplate() string
	GetBSPSendRatePerSecond() float64
	IsBSPEnabled() bool
}

// EmailConfig provides settings for operator alert emails.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetAlertRecipient() string
	IsEmailEnabled() bool
}

// RetentionConfig provides the pending-order retention window.
type RetentionConfig interface {
	GetPendingOrderRetention() time.Duration
	GetPollInterval() time.Duration
	GetPollLookback() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	BSPBaseURL            string
	BSPAPIKey             string
	BSPOrderTemplate      string
	BSPSendRatePerSecond  float64
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromAddress      string
	AlertRecipient        string
	PendingOrderRetention time.Duration
	PollInterval          time.Duration
	PollLookback          time.Duration
}

// Load reads configuration from the environment, with .env support for
// local development. Missing required values return an error rather than
// a partially configured service.
func Load() (*Config, error) {
	// Best effort: a missing .env file is fine in production.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTAccessSecret:       os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:          getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:           splitAndTrim(os.Getenv("CORS_ORIGINS")),
		CORSAllowCreds:        getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		RedisURL:              os.Getenv("REDIS_URL"),
		RedisTLSInsecure:      getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      getIntEnv("ASYNQ_CONCURRENCY", 10),
		BSPBaseURL:            os.Getenv("BSP_BASE_URL"),
		BSPAPIKey:             os.Getenv("BSP_API_KEY"),
		BSPOrderTemplate:      getEnv("BSP_ORDER_TEMPLATE", "order_notification"),
		BSPSendRatePerSecond:  getFloatEnv("BSP_SEND_RATE_PER_SECOND", 5),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              getIntEnv("SMTP_PORT", 587),
		SMTPUsername:          os.Getenv("SMTP_USERNAME"),
		SMTPPassword:          os.Getenv("SMTP_PASSWORD"),
		EmailFromAddress:      os.Getenv("EMAIL_FROM_ADDRESS"),
		AlertRecipient:        os.Getenv("ALERT_RECIPIENT"),
		PendingOrderRetention: getDurationEnv("PENDING_ORDER_RETENTION", 72*time.Hour),
		PollInterval:          getDurationEnv("BSP_POLL_INTERVAL", 5*time.Minute),
		PollLookback:          getDurationEnv("BSP_POLL_LOOKBACK", 30*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string    { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string       { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool     { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string  { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool   { return c.CORSAllowCreds }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetBSPBaseURL() string             { return c.BSPBaseURL }
func (c *Config) GetBSPAPIKey() string              { return c.BSPAPIKey }
func (c *Config) GetBSPOrderTemplate() string       { return c.BSPOrderTemplate }
func (c *Config) GetBSPSendRatePerSecond() float64  { return c.BSPSendRatePerSecond }
func (c *Config) IsBSPEnabled() bool                { return c.BSPBaseURL != "" }

func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAlertRecipient() string   { return c.AlertRecipient }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != "" && c.AlertRecipient != ""
}

func (c *Config) GetPendingOrderRetention() time.Duration { return c.PendingOrderRetention }
func (c *Config) GetPollInterval() time.Duration          { return c.PollInterval }
func (c *Config) GetPollLookback() time.Duration          { return c.PollLookback }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloatEnv(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
