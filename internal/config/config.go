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
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Sync      SyncConfig
	Providers ProvidersConfig
	Worker    WorkerConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
	Environment     string
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// SyncConfig contains sync engine tuning. Defaults mirror the provider
// rate-limit shapes observed in production.
type SyncConfig struct {
	TokenSafetyMargin  time.Duration // refresh this long before declared expiry
	IncrementalWindow  time.Duration // re-covered interval before the watermark
	PageDelay          time.Duration // delay between listing pages
	PageSize           int
	DiscoveryCap       int // hard cap on identifiers per run
	ChunkSize          int // ids per detail-fetch chunk
	ChunkConcurrency   int // chunks in flight at once
	ChunkGroupDelay    time.Duration
	SerialQueueDelay   time.Duration // inter-request spacing for serialized providers
	PersistBatchSize   int
	HTTPTimeout        time.Duration
	ShopeeWindowDays   int // calendar slice length for windowed discovery
	ShopeeLookbackDays int // first-sync lookback horizon
}

// ProvidersConfig contains per-channel application credentials
type ProvidersConfig struct {
	Nuvemshop NuvemshopConfig
	Bling     BlingConfig
	Shopee    ShopeeConfig
}

// NuvemshopConfig contains Nuvemshop app credentials
type NuvemshopConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// BlingConfig contains Bling app credentials
type BlingConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// ShopeeConfig contains Shopee open platform credentials
type ShopeeConfig struct {
	PartnerID  int64
	PartnerKey string
	BaseURL    string
}

// WorkerConfig contains the background poller configuration
type WorkerConfig struct {
	Enabled       bool
	PollSchedule  string // cron spec, e.g. "@every 30m"
	AutoSync      bool   // trigger a sync when the poller finds changes
	MaxUsersBatch int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "ordersync"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./ordersync.db"),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			AccessTokenExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Sync: SyncConfig{
			TokenSafetyMargin:  getEnvAsDuration("SYNC_TOKEN_SAFETY_MARGIN", 300*time.Second),
			IncrementalWindow:  getEnvAsDuration("SYNC_INCREMENTAL_WINDOW", 30*time.Minute),
			PageDelay:          getEnvAsDuration("SYNC_PAGE_DELAY", 250*time.Millisecond),
			PageSize:           getEnvAsInt("SYNC_PAGE_SIZE", 50),
			DiscoveryCap:       getEnvAsInt("SYNC_DISCOVERY_CAP", 10000),
			ChunkSize:          getEnvAsInt("SYNC_CHUNK_SIZE", 20),
			ChunkConcurrency:   getEnvAsInt("SYNC_CHUNK_CONCURRENCY", 5),
			ChunkGroupDelay:    getEnvAsDuration("SYNC_CHUNK_GROUP_DELAY", 500*time.Millisecond),
			SerialQueueDelay:   getEnvAsDuration("SYNC_SERIAL_QUEUE_DELAY", 340*time.Millisecond),
			PersistBatchSize:   getEnvAsInt("SYNC_PERSIST_BATCH_SIZE", 300),
			HTTPTimeout:        getEnvAsDuration("SYNC_HTTP_TIMEOUT", 30*time.Second),
			ShopeeWindowDays:   getEnvAsInt("SYNC_SHOPEE_WINDOW_DAYS", 15),
			ShopeeLookbackDays: getEnvAsInt("SYNC_SHOPEE_LOOKBACK_DAYS", 90),
		},
		Providers: ProvidersConfig{
			Nuvemshop: NuvemshopConfig{
				ClientID:     getEnv("NUVEMSHOP_CLIENT_ID", ""),
				ClientSecret: getEnv("NUVEMSHOP_CLIENT_SECRET", ""),
				BaseURL:      getEnv("NUVEMSHOP_BASE_URL", "https://api.nuvemshop.com.br/v1"),
			},
			Bling: BlingConfig{
				ClientID:     getEnv("BLING_CLIENT_ID", ""),
				ClientSecret: getEnv("BLING_CLIENT_SECRET", ""),
				BaseURL:      getEnv("BLING_BASE_URL", "https://api.bling.com.br/Api/v3"),
			},
			Shopee: ShopeeConfig{
				PartnerID:  getEnvAsInt64("SHOPEE_PARTNER_ID", 0),
				PartnerKey: getEnv("SHOPEE_PARTNER_KEY", ""),
				BaseURL:    getEnv("SHOPEE_BASE_URL", "https://partner.shopeemobile.com"),
			},
		},
		Worker: WorkerConfig{
			Enabled:       getEnvAsBool("WORKER_ENABLED", true),
			PollSchedule:  getEnv("WORKER_POLL_SCHEDULE", "@every 30m"),
			AutoSync:      getEnvAsBool("WORKER_AUTO_SYNC", false),
			MaxUsersBatch: getEnvAsInt("WORKER_MAX_USERS_BATCH", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Sync.ChunkSize < 1 || c.Sync.ChunkConcurrency < 1 {
		return fmt.Errorf("chunk size and concurrency must be positive")
	}

	if c.Sync.PersistBatchSize < 1 {
		return fmt.Errorf("persist batch size must be positive")
	}

	return nil
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
