package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret          string
	JWTExpirationHours int
	LegacyTokenPrefix  string

	// Storage
	StorageDriver  string
	StoragePath    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool

	// Redis / RabbitMQ
	RedisURL    string
	RabbitMQURL string

	// Background Workers
	WorkerCount        int
	ChequeReminderCron string
	PolicyExpiryCron   string

	// CORS
	AllowedOrigins []string

	// Email (Resend)
	EnableEmailNotifications bool
	ResendAPIKey             string
	FromEmail                string
	AdminEmails              []string

	// SMS (Twilio)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Sentry
	SentryDSN string

	// Payment gateway
	PaymentGatewayURL    string
	PaymentGatewaySecret string

	// Business rules
	RejectOverpayment bool
	DashboardCacheTTL time.Duration
	IdempotencyTTL    time.Duration
}

// Load reads configuration from the environment and an optional config.yaml.
// Environment variables always win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:                     v.GetString("PORT"),
		Environment:              v.GetString("ENVIRONMENT"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
		DatabaseURL:              v.GetString("DATABASE_URL"),
		JWTSecret:                v.GetString("JWT_SECRET"),
		JWTExpirationHours:       v.GetInt("JWT_EXPIRATION_HOURS"),
		LegacyTokenPrefix:        v.GetString("LEGACY_TOKEN_PREFIX"),
		StorageDriver:            strings.ToLower(v.GetString("STORAGE_DRIVER")),
		StoragePath:              v.GetString("STORAGE_PATH"),
		MinioEndpoint:            v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:           v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:           v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:              v.GetString("MINIO_BUCKET"),
		MinioSecure:              v.GetBool("MINIO_SECURE"),
		RedisURL:                 v.GetString("REDIS_URL"),
		RabbitMQURL:              v.GetString("RABBITMQ_URL"),
		WorkerCount:              v.GetInt("WORKER_COUNT"),
		ChequeReminderCron:       v.GetString("CHEQUE_REMINDER_CRON"),
		PolicyExpiryCron:         v.GetString("POLICY_EXPIRY_CRON"),
		AllowedOrigins:           splitList(v.GetString("ALLOWED_ORIGINS")),
		ResendAPIKey:             v.GetString("RESEND_API_KEY"),
		EnableEmailNotifications: v.GetBool("ENABLE_EMAIL_NOTIFICATIONS"),
		FromEmail:                v.GetString("FROM_EMAIL"),
		AdminEmails:              splitList(v.GetString("ADMIN_EMAILS")),
		TwilioAccountSID:         v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:          v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:         v.GetString("TWILIO_FROM_NUMBER"),
		SentryDSN:                v.GetString("SENTRY_DSN"),
		PaymentGatewayURL:        v.GetString("PAYMENT_GATEWAY_URL"),
		PaymentGatewaySecret:     v.GetString("PAYMENT_GATEWAY_SECRET"),
		RejectOverpayment:        v.GetBool("REJECT_OVERPAYMENT"),
		DashboardCacheTTL:        v.GetDuration("DASHBOARD_CACHE_TTL"),
		IdempotencyTTL:           v.GetDuration("IDEMPOTENCY_TTL"),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.IsProduction() {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if cfg.StorageDriver != "local" && cfg.StorageDriver != "minio" {
		return nil, fmt.Errorf("STORAGE_DRIVER must be local or minio, got %q", cfg.StorageDriver)
	}

	if cfg.StorageDriver == "minio" && (cfg.MinioEndpoint == "" || cfg.MinioBucket == "") {
		return nil, fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required when STORAGE_DRIVER=minio")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("LEGACY_TOKEN_PREFIX", "islam__")
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_PATH", "./storage")
	v.SetDefault("MINIO_BUCKET", "insurance")
	v.SetDefault("MINIO_SECURE", false)
	v.SetDefault("WORKER_COUNT", 5)
	v.SetDefault("CHEQUE_REMINDER_CRON", "0 8 * * *")
	v.SetDefault("POLICY_EXPIRY_CRON", "15 0 * * *")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("FROM_EMAIL", "noreply@insurance.local")
	v.SetDefault("ENABLE_EMAIL_NOTIFICATIONS", true)
	v.SetDefault("PAYMENT_GATEWAY_URL", "https://pay.example.com/checkout")
	v.SetDefault("REJECT_OVERPAYMENT", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", 5*time.Minute)
	v.SetDefault("IDEMPOTENCY_TTL", 10*time.Minute)

	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range []string{
		"DATABASE_URL", "JWT_SECRET", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY",
		"MINIO_SECRET_KEY", "REDIS_URL", "RABBITMQ_URL", "RESEND_API_KEY",
		"ADMIN_EMAILS", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN",
		"TWILIO_FROM_NUMBER", "SENTRY_DSN", "PAYMENT_GATEWAY_SECRET",
	} {
		_ = v.BindEnv(key)
	}
}

// splitList reads a comma-separated value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
