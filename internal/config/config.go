package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config captures runtime configuration for the storefront services.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	AMQP      AMQPConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port          int
	MetricsPath   string
	ShutdownGrace int
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
	// PingTimeoutSeconds bounds the readiness-probe ping.
	PingTimeoutSeconds int
}

type AMQPConfig struct {
	URL        string
	EmailQueue string
	Exchange   string
}

type AuthConfig struct {
	TokenSecret string
	TokenTTL    int
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort       = 8080
	defaultMetricsPath    = "/metrics"
	defaultShutdownGrace  = 15
	defaultMigrationsPath = "migrations"
	defaultAutoMigrate    = true
	defaultPingTimeout    = 2
	defaultEmailQueue     = "storefront.notifications.email"
	defaultExchange       = "storefront.events"
	defaultTokenTTL       = 3600
	defaultServiceName    = "storefront-api"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultOTelSampleRate = 1.0
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	authCfg, err := loadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("loading auth config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:      httpCfg,
		Database:  loadDatabaseConfig(),
		AMQP:      loadAMQPConfig(),
		Auth:      authCfg,
		Telemetry: telCfg,
		Service:   loadServiceConfig(),
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port := defaultHTTPPort
	if value, ok := os.LookupEnv("API_HTTP_PORT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %w", err)
		}
		port = parsed
	}

	shutdownGrace := defaultShutdownGrace
	if value, ok := os.LookupEnv("API_SHUTDOWN_GRACE_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_SHUTDOWN_GRACE_SECONDS: %w", err)
		}
		shutdownGrace = parsed
	}

	return HTTPConfig{
		Port:          port,
		MetricsPath:   getEnvOrDefault("API_METRICS_PATH", defaultMetricsPath),
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	autoMigrate := defaultAutoMigrate
	if value, ok := os.LookupEnv("AUTO_MIGRATE"); ok {
		autoMigrate = value == "true"
	}

	pingTimeout := defaultPingTimeout
	if value, ok := os.LookupEnv("DB_PING_TIMEOUT_SECONDS"); ok {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			pingTimeout = parsed
		}
	}

	return DatabaseConfig{
		URL:                databaseURL,
		AutoMigrate:        autoMigrate,
		MigrationsPath:     getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
		PingTimeoutSeconds: pingTimeout,
	}
}

func loadAMQPConfig() AMQPConfig {
	return AMQPConfig{
		URL:        getEnvOrDefault("AMQP_URL", ""),
		EmailQueue: getEnvOrDefault("AMQP_EMAIL_QUEUE", defaultEmailQueue),
		Exchange:   getEnvOrDefault("AMQP_EXCHANGE", defaultExchange),
	}
}

func loadAuthConfig() (AuthConfig, error) {
	tokenTTL := defaultTokenTTL
	if value, ok := os.LookupEnv("AUTH_TOKEN_TTL_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("invalid AUTH_TOKEN_TTL_SECONDS: %w", err)
		}
		tokenTTL = parsed
	}

	return AuthConfig{
		TokenSecret: getEnvOrDefault("AUTH_TOKEN_SECRET", "dev-secret"),
		TokenTTL:    tokenTTL,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "storefront")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbName, sslMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}
