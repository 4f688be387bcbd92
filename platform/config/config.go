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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// EmailConfig provides settings for outbound email via SMTP.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// EscalationConfig provides settings for staff escalation notifications.
type EscalationConfig interface {
	GetEscalationRecipient() string
}

// ModelConfig provides settings for the model gateway.
type ModelConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetModelTimeout() time.Duration
}

// OrdersConfig provides settings for the external order-management API.
type OrdersConfig interface {
	GetOrdersAPIURL() string
	GetOrdersAPIKey() string
}

// RedisConfig provides settings for redis-backed components (turn locks,
// background task queue).
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
}

// PricingConfig provides settings for the pricing engine.
type PricingConfig interface {
	GetPricingTablePath() string
	GetPricingUnitRate() float64
}

// WidgetConfig provides settings for chat-widget authentication.
type WidgetConfig interface {
	GetWidgetAPIKey() string
}

// BrandConfig provides the brand profile injected into prompts.
type BrandConfig interface {
	GetBrandName() string
	GetEstimatorURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	CORSAllowAll        bool
	CORSOrigins         []string
	EmailEnabled        bool
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	EmailFromName       string
	EmailFromAddress    string
	EscalationRecipient string
	GeminiAPIKey        string
	GeminiModel         string
	ModelTimeout        time.Duration
	OrdersAPIURL        string
	OrdersAPIKey        string
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueueName      string
	PricingTablePath    string
	PricingUnitRate     float64
	WidgetAPIKey        string
	BrandName           string
	EstimatorURL        string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// EscalationConfig implementation
func (c *Config) GetEscalationRecipient() string { return c.EscalationRecipient }

// ModelConfig implementation
func (c *Config) GetGeminiAPIKey() string        { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string         { return c.GeminiModel }
func (c *Config) GetModelTimeout() time.Duration { return c.ModelTimeout }

// OrdersConfig implementation
func (c *Config) GetOrdersAPIURL() string { return c.OrdersAPIURL }
func (c *Config) GetOrdersAPIKey() string { return c.OrdersAPIKey }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }

// PricingConfig implementation
func (c *Config) GetPricingTablePath() string { return c.PricingTablePath }
func (c *Config) GetPricingUnitRate() float64 { return c.PricingUnitRate }

// WidgetConfig implementation
func (c *Config) GetWidgetAPIKey() string { return c.WidgetAPIKey }

// BrandConfig implementation
func (c *Config) GetBrandName() string    { return c.BrandName }
func (c *Config) GetEstimatorURL() string { return c.EstimatorURL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		EmailEnabled:        emailEnabled && smtpHost != "",
		SMTPHost:            smtpHost,
		SMTPPort:            mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Concierge"),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		EscalationRecipient: getEnv("ESCALATION_RECIPIENT", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		ModelTimeout:        mustDuration(getEnv("MODEL_TIMEOUT", "25s")),
		OrdersAPIURL:        getEnv("ORDERS_API_URL", ""),
		OrdersAPIKey:        getEnv("ORDERS_API_KEY", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		PricingTablePath:    getEnv("PRICING_TABLE_PATH", ""),
		PricingUnitRate:     mustFloat(getEnv("PRICING_UNIT_RATE", "5.27")),
		WidgetAPIKey:        getEnv("WIDGET_API_KEY", ""),
		BrandName:           getEnv("BRAND_NAME", "Apex Wraps"),
		EstimatorURL:        getEnv("ESTIMATOR_URL", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.EmailEnabled && cfg.EscalationRecipient == "" {
		return nil, fmt.Errorf("ESCALATION_RECIPIENT is required when email is enabled")
	}
	if cfg.PricingUnitRate <= 0 {
		return nil, fmt.Errorf("PRICING_UNIT_RATE must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
