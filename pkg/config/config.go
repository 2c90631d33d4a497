package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/teamsites/pkg/observability"
	"github.com/platinummonkey/teamsites/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration (database, Redis, S3)
	Storage storage.Config

	// Identity provider configuration
	Identity IdentityConfig

	// Session and handshake configuration
	Session SessionConfig

	// Public site configuration
	Sites SitesConfig

	// Background worker configuration
	Worker WorkerConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Optional YAML file with reloadable settings
	FilePath string
	File     *FileConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// IdentityConfig holds settings for the hosted identity provider
type IdentityConfig struct {
	URL      string // provider auth base URL, e.g. https://id.example.com/auth/v1
	APIKey   string // public key sent on every request
	AdminKey string // service key for invitations
	ClientID string
	Issuer   string
	JWKSURL  string
	Timeout  time.Duration
}

// SessionConfig holds cookie, session sync and rate limit settings
type SessionConfig struct {
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
	EstablishURL string
	SyncTimeout  time.Duration
	ReplayTTL    time.Duration
	RateLimit    int
	RateWindow   time.Duration
}

// SitesConfig holds rendering and publishing settings
type SitesConfig struct {
	RenderCacheSize int
	RenderCacheTTL  time.Duration
	PublishPrefix   string
}

// WorkerConfig holds cron schedules for cmd/teamsites-worker
type WorkerConfig struct {
	RepublishSchedule string
	PruneSchedule     string
	InviteTTL         time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables and the
// optional YAML file named by TEAMSITES_CONFIG_FILE.
func LoadConfig() (*Config, error) {
	server := loadServerConfig()
	cfg := &Config{
		Server:        server,
		Storage:       loadStorageConfig(),
		Identity:      loadIdentityConfig(),
		Session:       loadSessionConfig(server.BaseURL),
		Sites:         loadSitesConfig(),
		Worker:        loadWorkerConfig(),
		Observability: loadObservabilityConfig(),
		FilePath:      getEnv("TEAMSITES_CONFIG_FILE", ""),
	}

	if cfg.FilePath != "" {
		file, err := LoadFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		cfg.File = file
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	port := getEnv("TEAMSITES_PORT", "8080")
	return ServerConfig{
		Host:            getEnv("TEAMSITES_HOST", "0.0.0.0"),
		Port:            port,
		BaseURL:         strings.TrimRight(getEnv("TEAMSITES_BASE_URL", "http://localhost:"+port), "/"),
		ReadTimeout:     getEnvDuration("TEAMSITES_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("TEAMSITES_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("TEAMSITES_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("TEAMSITES_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("TEAMSITES_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	// Database config
	if driver := getEnv("TEAMSITES_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if dsn := getEnv("TEAMSITES_DATABASE_URL", ""); dsn != "" {
		cfg.DSN = dsn
	}
	if maxConns := getEnvInt("TEAMSITES_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("TEAMSITES_DB_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("TEAMSITES_DB_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}
	if lifetime := getEnvDuration("TEAMSITES_DB_MAX_LIFETIME", 0); lifetime > 0 {
		cfg.MaxLifetime = lifetime
	}

	// Redis config
	if redisURL := getEnv("TEAMSITES_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if redisPassword := getEnv("TEAMSITES_REDIS_PASSWORD", ""); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}
	if redisDB := getEnvInt("TEAMSITES_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisPoolSize := getEnvInt("TEAMSITES_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}

	// S3 config
	cfg.S3Endpoint = getEnv("TEAMSITES_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Region = getEnv("TEAMSITES_S3_REGION", cfg.S3Region)
	cfg.S3Bucket = getEnv("TEAMSITES_S3_BUCKET", cfg.S3Bucket)
	cfg.S3AccessKey = getEnv("TEAMSITES_S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("TEAMSITES_S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3UsePathStyle = getEnvBool("TEAMSITES_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)

	return cfg
}

// loadIdentityConfig loads identity provider configuration from environment
func loadIdentityConfig() IdentityConfig {
	base := strings.TrimRight(getEnv("TEAMSITES_IDENTITY_URL", ""), "/")
	return IdentityConfig{
		URL:      base,
		APIKey:   getEnv("TEAMSITES_IDENTITY_API_KEY", ""),
		AdminKey: getEnv("TEAMSITES_IDENTITY_ADMIN_KEY", ""),
		ClientID: getEnv("TEAMSITES_IDENTITY_CLIENT_ID", "teamsites"),
		Issuer:   getEnv("TEAMSITES_IDENTITY_ISSUER", base),
		JWKSURL:  getEnv("TEAMSITES_IDENTITY_JWKS_URL", base+"/.well-known/jwks.json"),
		Timeout:  getEnvDuration("TEAMSITES_IDENTITY_TIMEOUT", 15*time.Second),
	}
}

// loadSessionConfig loads session configuration from environment
func loadSessionConfig(baseURL string) SessionConfig {
	return SessionConfig{
		CookieName:   getEnv("TEAMSITES_SESSION_COOKIE", "ts_session"),
		CookieSecure: getEnvBool("TEAMSITES_SESSION_SECURE", strings.HasPrefix(baseURL, "https://")),
		TTL:          getEnvDuration("TEAMSITES_SESSION_TTL", 7*24*time.Hour),
		EstablishURL: getEnv("TEAMSITES_SESSION_ESTABLISH_URL", baseURL+"/auth/session"),
		SyncTimeout:  getEnvDuration("TEAMSITES_SESSION_SYNC_TIMEOUT", 10*time.Second),
		ReplayTTL:    getEnvDuration("TEAMSITES_CODE_REPLAY_TTL", 10*time.Minute),
		RateLimit:    getEnvInt("TEAMSITES_AUTH_RATE_LIMIT", 30),
		RateWindow:   getEnvDuration("TEAMSITES_AUTH_RATE_WINDOW", time.Minute),
	}
}

// loadSitesConfig loads rendering configuration from environment
func loadSitesConfig() SitesConfig {
	return SitesConfig{
		RenderCacheSize: getEnvInt("TEAMSITES_RENDER_CACHE_SIZE", 256),
		RenderCacheTTL:  getEnvDuration("TEAMSITES_RENDER_CACHE_TTL", 5*time.Minute),
		PublishPrefix:   getEnv("TEAMSITES_PUBLISH_PREFIX", "sites/"),
	}
}

// loadWorkerConfig loads worker configuration from environment
func loadWorkerConfig() WorkerConfig {
	return WorkerConfig{
		RepublishSchedule: getEnv("TEAMSITES_REPUBLISH_SCHEDULE", "0 3 * * *"),
		PruneSchedule:     getEnv("TEAMSITES_PRUNE_SCHEDULE", "30 4 * * *"),
		InviteTTL:         getEnvDuration("TEAMSITES_INVITE_TTL", 720*time.Hour),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("TEAMSITES_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("TEAMSITES_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("TEAMSITES_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("TEAMSITES_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("TEAMSITES_OTEL_SERVICE_NAME", "teamsites"),
		OTelServiceVersion: getEnv("TEAMSITES_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("TEAMSITES_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("TEAMSITES_OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if _, err := url.ParseRequestURI(c.Server.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.Server.BaseURL, err)
	}

	// Validate storage config
	switch c.Storage.Driver {
	case storage.DriverPostgres, storage.DriverSQLite:
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Storage.Driver)
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	// Validate identity config
	if c.Identity.URL == "" {
		return fmt.Errorf("identity provider URL is required")
	}
	if c.Identity.Timeout <= 0 {
		return fmt.Errorf("identity timeout must be positive")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if c.Session.SyncTimeout <= 0 {
		return fmt.Errorf("session sync timeout must be positive")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
