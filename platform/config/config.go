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

// JWTConfig provides JWT validation settings for the admin middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepSchedule() string
	GetSweepLockTTL() time.Duration
}

// RoutingConfig provides settings for the distance/eligibility provider.
type RoutingConfig interface {
	GetGeocodeBaseURL() string
	GetRoutingBaseURL() string
	GetRoutingTimeout() time.Duration
	GetMaxPickupDistanceKm() float64
	GetDepotLat() float64
	GetDepotLon() float64
}

// PricingConfig provides settings for the pricing engine.
type PricingConfig interface {
	GetCatalogPath() string
	GetQuoteTolerance() int64
}

// LifecycleConfig provides settings for the lead/quote lifecycle.
type LifecycleConfig interface {
	GetQuoteValidity() time.Duration
	GetVerificationTokenTTL() time.Duration
	GetNearExpiryWindow() time.Duration
}

// BookingConfig provides settings for slot generation and same-day policy.
type BookingConfig interface {
	GetBookingTimezone() string
	GetOperatingStartHour() int
	GetOperatingEndHour() int
	GetSameDayCutoffHour() int
	GetSameDayMaxDistanceKm() float64
	GetDefaultDaysAhead() int
	GetMaxDaysAhead() int
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration, loaded from the environment.
type Config struct {
	Env         string
	HTTPAddr    string
	DatabaseURL string

	CORSAllowAll bool
	CORSOrigins  []string

	JWTAccessSecret string

	RedisURL         string
	AsynqQueueName   string
	AsynqConcurrency int
	SweepSchedule    string
	SweepLockTTL     time.Duration

	GeocodeBaseURL      string
	RoutingBaseURL      string
	RoutingTimeout      time.Duration
	MaxPickupDistanceKm float64
	DepotLat            float64
	DepotLon            float64

	CatalogPath    string
	QuoteTolerance int64

	QuoteValidity        time.Duration
	VerificationTokenTTL time.Duration
	NearExpiryWindow     time.Duration

	BookingTimezone      string
	OperatingStartHour   int
	OperatingEndHour     int
	SameDayCutoffHour    int
	SameDayMaxDistanceKm float64
	DefaultDaysAhead     int
	MaxDaysAhead         int

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromAddress string
	AppBaseURL       string
}

// Load reads configuration from the environment (and .env when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:         getEnv("APP_ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowAll: strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 10m"),
		SweepLockTTL:     mustDuration(getEnv("SWEEP_LOCK_TTL", "5m")),

		GeocodeBaseURL:      getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		RoutingBaseURL:      getEnv("ROUTING_BASE_URL", "https://router.project-osrm.org"),
		RoutingTimeout:      mustDuration(getEnv("ROUTING_TIMEOUT", "5s")),
		MaxPickupDistanceKm: getEnvFloat("MAX_PICKUP_DISTANCE_KM", 60),
		DepotLat:            getEnvFloat("DEPOT_LAT", 40.7506),
		DepotLon:            getEnvFloat("DEPOT_LON", -73.9935),

		CatalogPath:    getEnv("CATALOG_PATH", "config/catalog.yaml"),
		QuoteTolerance: int64(getEnvInt("QUOTE_TOLERANCE", 5)),

		QuoteValidity:        mustDuration(getEnv("QUOTE_VALIDITY", "168h")),
		VerificationTokenTTL: mustDuration(getEnv("VERIFY_TOKEN_TTL", "15m")),
		NearExpiryWindow:     mustDuration(getEnv("NEAR_EXPIRY_WINDOW", "24h")),

		BookingTimezone:      getEnv("BOOKING_TIMEZONE", "America/New_York"),
		OperatingStartHour:   getEnvInt("OPERATING_START_HOUR", 12),
		OperatingEndHour:     getEnvInt("OPERATING_END_HOUR", 20),
		SameDayCutoffHour:    getEnvInt("SAME_DAY_CUTOFF_HOUR", 15),
		SameDayMaxDistanceKm: getEnvFloat("SAME_DAY_MAX_DISTANCE_KM", 20),
		DefaultDaysAhead:     getEnvInt("DEFAULT_DAYS_AHEAD", 7),
		MaxDaysAhead:         getEnvInt("MAX_DAYS_AHEAD", 14),

		EmailEnabled:     emailEnabled,
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:4200"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
	}
	if cfg.OperatingEndHour <= cfg.OperatingStartHour {
		return nil, fmt.Errorf("OPERATING_END_HOUR must be after OPERATING_START_HOUR")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetRedisURL() string            { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string      { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int       { return c.AsynqConcurrency }
func (c *Config) GetSweepSchedule() string       { return c.SweepSchedule }
func (c *Config) GetSweepLockTTL() time.Duration { return c.SweepLockTTL }

func (c *Config) GetGeocodeBaseURL() string        { return c.GeocodeBaseURL }
func (c *Config) GetRoutingBaseURL() string        { return c.RoutingBaseURL }
func (c *Config) GetRoutingTimeout() time.Duration { return c.RoutingTimeout }
func (c *Config) GetMaxPickupDistanceKm() float64  { return c.MaxPickupDistanceKm }
func (c *Config) GetDepotLat() float64             { return c.DepotLat }
func (c *Config) GetDepotLon() float64             { return c.DepotLon }

func (c *Config) GetCatalogPath() string   { return c.CatalogPath }
func (c *Config) GetQuoteTolerance() int64 { return c.QuoteTolerance }

func (c *Config) GetQuoteValidity() time.Duration        { return c.QuoteValidity }
func (c *Config) GetVerificationTokenTTL() time.Duration { return c.VerificationTokenTTL }
func (c *Config) GetNearExpiryWindow() time.Duration     { return c.NearExpiryWindow }

func (c *Config) GetBookingTimezone() string       { return c.BookingTimezone }
func (c *Config) GetOperatingStartHour() int       { return c.OperatingStartHour }
func (c *Config) GetOperatingEndHour() int         { return c.OperatingEndHour }
func (c *Config) GetSameDayCutoffHour() int        { return c.SameDayCutoffHour }
func (c *Config) GetSameDayMaxDistanceKm() float64 { return c.SameDayMaxDistanceKm }
func (c *Config) GetDefaultDaysAhead() int         { return c.DefaultDaysAhead }
func (c *Config) GetMaxDaysAhead() int             { return c.MaxDaysAhead }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
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
