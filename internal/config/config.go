package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string

	// Auth
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Redis cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// AWS (S3 attachments, SES email, SQS reminder queue)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	AttachmentsBucket   string
	ReminderQueueURL    string

	// Email
	EmailProvider    string // "ses", "sendgrid" or "stub"
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string

	// Background workers
	ReminderInterval   time.Duration
	ReminderLeadHours  int
	AutoCancelInterval time.Duration

	// Reports
	ReportCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	// A local .env is optional; real environments set the variables.
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:   getEnvAsDuration("RESET_TOKEN_TTL", 30*time.Minute),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		AttachmentsBucket:   getEnv("ATTACHMENTS_BUCKET", ""),
		ReminderQueueURL:    getEnv("REMINDER_QUEUE_URL", ""),

		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@oralflow.ec"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "OralFlow"),

		ReminderInterval:   getEnvAsDuration("REMINDER_INTERVAL", 15*time.Minute),
		ReminderLeadHours:  getEnvAsInt("REMINDER_LEAD_HOURS", 24),
		AutoCancelInterval: getEnvAsDuration("AUTOCANCEL_INTERVAL", 30*time.Minute),

		ReportCacheTTL: getEnvAsDuration("REPORT_CACHE_TTL", 5*time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
