package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Storage      StorageConfig
	SLA          SLAConfig
	Cache        CacheConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitMB           int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
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
	JWTSecret       string
	SessionTTLHours int
	BcryptCost      int
}

// NotificationConfig controls where domain events are forwarded.
type NotificationConfig struct {
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaClientID string
}

// StorageConfig configures the attachment object store.
type StorageConfig struct {
	Root          string
	PublicBaseURL string
	MaxUploadMB   int
}

// SLAConfig configures the SLA sweeper.
type SLAConfig struct {
	SweepSchedule string
	SweepEnabled  bool
	SweepBatch    int
}

// CacheConfig configures lookup caching.
type CacheConfig struct {
	LookupTTLSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "cityflow-crm"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitMB:           getEnvAsInt("HTTP_BODY_LIMIT_MB", 20),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
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
			JWTSecret:       getEnv("AUTH_JWT_SECRET", "dev-secret"),
			SessionTTLHours: getEnvAsInt("AUTH_SESSION_TTL_HOURS", 12),
			BcryptCost:      getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Notification: NotificationConfig{
			KafkaBrokers:  parseCSV(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:    getEnv("KAFKA_TOPIC", "crm.ticket-events"),
			KafkaClientID: getEnv("KAFKA_CLIENT_ID", "cityflow-crm"),
		},
		Storage: StorageConfig{
			Root:          getEnv("STORAGE_ROOT", "./data/attachments"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files"),
			MaxUploadMB:   getEnvAsInt("STORAGE_MAX_UPLOAD_MB", 10),
		},
		SLA: SLAConfig{
			SweepSchedule: getEnv("SLA_SWEEP_SCHEDULE", "@every 1m"),
			SweepEnabled:  getEnvAsBool("SLA_SWEEP_ENABLED", true),
			SweepBatch:    getEnvAsInt("SLA_SWEEP_BATCH", 500),
		},
		Cache: CacheConfig{
			LookupTTLSeconds: getEnvAsInt("CACHE_LOOKUP_TTL_SECONDS", 300),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Auth.JWTSecret == "dev-secret" && c.App.Env == "production" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	if u, err := url.Parse(c.Storage.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("STORAGE_PUBLIC_BASE_URL must be an absolute URL, got %q", c.Storage.PublicBaseURL))
	}
	if c.Storage.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("STORAGE_MAX_UPLOAD_MB must be positive"))
	}
	if c.SLA.SweepEnabled {
		if c.SLA.SweepBatch <= 0 {
			errs = append(errs, errors.New("SLA_SWEEP_BATCH must be positive"))
		}
		if _, err := cron.ParseStandard(c.SLA.SweepSchedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid SLA_SWEEP_SCHEDULE %q: %w", c.SLA.SweepSchedule, err))
		}
	}
	return errors.Join(errs...)
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

// SessionTTL returns how long a login session stays valid.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(a.SessionTTLHours) * time.Hour
}

// LookupTTL returns the cache lifetime for region and city lookups.
func (c CacheConfig) LookupTTL() time.Duration {
	if c.LookupTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.LookupTTLSeconds) * time.Second
}

// KafkaEnabled reports whether events should be forwarded to Kafka.
func (n NotificationConfig) KafkaEnabled() bool {
	return len(n.KafkaBrokers) > 0 && n.KafkaTopic != ""
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

func parseCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
