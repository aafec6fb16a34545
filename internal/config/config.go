package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Broker    BrokerConfig
	Tracing   TracingConfig
	Ticket    TicketConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	ProxyHeader           string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	InstitutionDomain     string
	MinPasswordLength     int
}

// RateLimitConfig defines throttling policy for security sensitive actions.
// Backend is one of postgres, redis or memory.
type RateLimitConfig struct {
	Backend        string
	LoginLimit     int
	LoginWindow    time.Duration
	RegisterLimit  int
	RegisterWindow time.Duration
	SweepInterval  time.Duration
	RedisKeyPrefix string
}

// BrokerConfig holds the AMQP endpoint for domain events. Empty URL disables publishing.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// TracingConfig configures OTLP export. Empty endpoint disables tracing.
type TracingConfig struct {
	OTLPEndpoint string
}

// TicketConfig controls ticket token and scan link behavior.
type TicketConfig struct {
	ScanBaseURL   string
	TokenAttempts int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	domain := strings.ToLower(getEnv("AUTH_INSTITUTION_DOMAIN", "@aimt.ac.in"))
	if !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}

	backend := strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "postgres"))
	switch backend {
	case "postgres", "redis", "memory":
	default:
		return nil, fmt.Errorf("invalid RATE_LIMIT_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "campusdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			ProxyHeader:           os.Getenv("HTTP_PROXY_HEADER"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			InstitutionDomain:     domain,
			MinPasswordLength:     getEnvAsInt("AUTH_MIN_PASSWORD_LENGTH", 8),
		},
		RateLimit: RateLimitConfig{
			Backend:        backend,
			LoginLimit:     getEnvAsInt("RATE_LIMIT_LOGIN_LIMIT", 5),
			LoginWindow:    getEnvAsDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
			RegisterLimit:  getEnvAsInt("RATE_LIMIT_REGISTER_LIMIT", 3),
			RegisterWindow: getEnvAsDuration("RATE_LIMIT_REGISTER_WINDOW", 60*time.Minute),
			SweepInterval:  getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", 5*time.Minute),
			RedisKeyPrefix: getEnv("RATE_LIMIT_REDIS_PREFIX", "rl"),
		},
		Broker: BrokerConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "campusdesk.events"),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
		Ticket: TicketConfig{
			ScanBaseURL:   strings.TrimRight(getEnv("TICKET_SCAN_BASE_URL", "http://localhost:3000"), "/"),
			TokenAttempts: getEnvAsInt("TICKET_TOKEN_ATTEMPTS", 5),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the session lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
