package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Batch    BatchConfig
	Refund   RefundConfig
	Logger   LoggerConfig
	Secrets  SecretsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int
	CronSecret  string // shared secret required on cron endpoints
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds Meridian payment gateway configuration
type GatewayConfig struct {
	BaseURL    string // Base URL for the Meridian form-post API
	MerchantID string
	APIKey     string // Secret key for request authentication
	Timeout    int    // Request timeout in seconds (default: 30)
}

// BatchConfig tunes the unattended charge run
type BatchConfig struct {
	MaxDeclinedAttempts int // permanent per-method ceiling before the method is skipped
	DuplicateWindowDays int
	ScheduleBatchSize   int
	ChargeCurrency      string // settlement currency for unattended charges
}

// RefundConfig tunes electronic refund eligibility
type RefundConfig struct {
	WindowDays     int    // capped at 45
	CutoffTimezone string // IANA name of the gateway's processing timezone
	CutoffHour     int
	CutoffMinute   int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// SecretsConfig selects where gateway credentials are read from
type SecretsConfig struct {
	Provider     string // local, vault or aws
	LocalPath    string // file holding the gateway key for the local provider
	VaultAddress string
	VaultToken   string
	VaultPath    string
	AWSRegion    string
	AWSSecretID  string
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
			CronSecret:  getEnv("CRON_SECRET", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "payment_engine"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			BaseURL:    getEnv("MERIDIAN_BASE_URL", "https://sandbox.meridianpay.io/api/formpost"),
			MerchantID: getEnv("MERIDIAN_MERCHANT_ID", ""),
			APIKey:     getEnv("MERIDIAN_API_KEY", ""),
			Timeout:    getEnvAsInt("MERIDIAN_TIMEOUT", 30),
		},
		Batch: BatchConfig{
			MaxDeclinedAttempts: getEnvAsInt("BATCH_MAX_DECLINED_ATTEMPTS", 3),
			DuplicateWindowDays: getEnvAsInt("BATCH_DUPLICATE_WINDOW_DAYS", 7),
			ScheduleBatchSize:   getEnvAsInt("BATCH_SCHEDULE_SIZE", 100),
			ChargeCurrency:      getEnv("BATCH_CHARGE_CURRENCY", "USD"),
		},
		Refund: RefundConfig{
			WindowDays:     getEnvAsInt("REFUND_WINDOW_DAYS", 45),
			CutoffTimezone: getEnv("REFUND_CUTOFF_TZ", "America/New_York"),
			CutoffHour:     getEnvAsInt("REFUND_CUTOFF_HOUR", 17),
			CutoffMinute:   getEnvAsInt("REFUND_CUTOFF_MINUTE", 0),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Secrets: SecretsConfig{
			Provider:     getEnv("SECRETS_PROVIDER", "local"),
			LocalPath:    getEnv("SECRETS_LOCAL_PATH", ""),
			VaultAddress: getEnv("VAULT_ADDR", ""),
			VaultToken:   getEnv("VAULT_TOKEN", ""),
			VaultPath:    getEnv("VAULT_SECRET_PATH", "secret/data/payment-engine"),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			AWSSecretID:  getEnv("AWS_SECRET_ID", ""),
		},
	}

	// Validate required fields
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Gateway.MerchantID == "" {
		return nil, fmt.Errorf("MERIDIAN_MERCHANT_ID is required")
	}
	if cfg.Refund.WindowDays < 1 || cfg.Refund.WindowDays > 45 {
		cfg.Refund.WindowDays = 45
	}

	return cfg, nil
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
