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

// MailConfig provides settings for the transactional mail channel.
// An empty SMTP host disables the channel.
type MailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetMailFromName() string
	GetMailFromAddress() string
	IsMailEnabled() bool
}

// WhatsAppConfig provides settings for the chat-message gateway.
// An empty gateway URL disables the channel.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	IsWhatsAppEnabled() bool
}

// PhoneConfig provides phone normalization settings.
type PhoneConfig interface {
	GetPhoneRegion() string
	GetPhoneCountryCode() string
}

// QueueConfig provides settings for the notification work queue.
// An empty Redis URL degrades dispatch to in-process goroutines.
type QueueConfig interface {
	GetRedisURL() string
	GetQueueName() string
	GetQueueConcurrency() int
}

// CatalogConfig provides settings for the catalog (ERP) collaborator.
type CatalogConfig interface {
	GetCatalogBaseURL() string
	GetCatalogAPIKey() string
	GetCatalogTimeout() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	JWTAccessSecret  string
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	MailFromName     string
	MailFromAddress  string
	WhatsAppURL      string
	WhatsAppKey      string
	PhoneRegion      string
	PhoneCountryCode string
	RedisURL         string
	QueueName        string
	QueueConcurrency int
	CatalogBaseURL   string
	CatalogAPIKey    string
	CatalogTimeout   time.Duration
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MailConfig implementation
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetMailFromName() string    { return c.MailFromName }
func (c *Config) GetMailFromAddress() string { return c.MailFromAddress }
func (c *Config) IsMailEnabled() bool        { return c.SMTPHost != "" }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string  { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string  { return c.WhatsAppKey }
func (c *Config) IsWhatsAppEnabled() bool { return c.WhatsAppURL != "" }

// PhoneConfig implementation
func (c *Config) GetPhoneRegion() string      { return c.PhoneRegion }
func (c *Config) GetPhoneCountryCode() string { return c.PhoneCountryCode }

// QueueConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetQueueName() string     { return c.QueueName }
func (c *Config) GetQueueConcurrency() int { return c.QueueConcurrency }

// CatalogConfig implementation
func (c *Config) GetCatalogBaseURL() string        { return c.CatalogBaseURL }
func (c *Config) GetCatalogAPIKey() string         { return c.CatalogAPIKey }
func (c *Config) GetCatalogTimeout() time.Duration { return c.CatalogTimeout }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		MailFromName:     getEnv("MAIL_FROM_NAME", "Storefront"),
		MailFromAddress:  getEnv("MAIL_FROM_ADDRESS", ""),
		WhatsAppURL:      getEnv("WHATSAPP_GATEWAY_URL", ""),
		WhatsAppKey:      getEnv("WHATSAPP_GATEWAY_KEY", ""),
		PhoneRegion:      getEnv("PHONE_REGION", "ID"),
		PhoneCountryCode: getEnv("PHONE_COUNTRY_CODE", "62"),
		RedisURL:         getEnv("REDIS_URL", ""),
		QueueName:        getEnv("QUEUE_NAME", "notifications"),
		QueueConcurrency: mustInt(getEnv("QUEUE_CONCURRENCY", "10")),
		CatalogBaseURL:   getEnv("CATALOG_BASE_URL", ""),
		CatalogAPIKey:    getEnv("CATALOG_API_KEY", ""),
		CatalogTimeout:   mustDuration(getEnv("CATALOG_TIMEOUT", "5s")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.IsMailEnabled() && cfg.MailFromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required when SMTP_HOST is set")
	}
	if cfg.CORSAllowAll {
		// Browsers refuse credentialed requests against a wildcard origin.
		cfg.CORSAllowCreds = false
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
