package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAccessSecret  = "dev-access-secret"
	defaultRefreshSecret = "dev-refresh-secret"
)

// ErrMisconfigured marks configuration that cannot be served safely.
var ErrMisconfigured = errors.New("misconfigured")

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Storage  StorageConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
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
	Addr            string
	Password        string
	DB              int
	ProfileCacheTTL time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines the two-token session parameters.
type AuthConfig struct {
	AccessSecret              string
	RefreshSecret             string
	AccessTTL                 time.Duration
	RefreshTTL                time.Duration
	RotationThresholdFraction float64
	ClockLeeway               time.Duration
	BcryptCost                int
	CookieSecure              bool
}

// StorageConfig selects and configures the image store.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	LocalDir        string
	LocalURLPrefix  string
	MaxUploadBytes  int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	accessTTL, err := getEnvAsDuration("AUTH_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getEnvAsDuration("AUTH_REFRESH_TTL", 15*24*time.Hour)
	if err != nil {
		return nil, err
	}
	leeway, err := getEnvAsDuration("AUTH_CLOCK_LEEWAY", 0)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvAsDuration("REDIS_PROFILE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	env := strings.ToLower(getEnv("APP_ENV", "development"))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "blog-service"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 12*1024*1024),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			ProfileCacheTTL: cacheTTL,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AccessSecret:              getEnv("AUTH_ACCESS_SECRET", defaultAccessSecret),
			RefreshSecret:             getEnv("AUTH_REFRESH_SECRET", defaultRefreshSecret),
			AccessTTL:                 accessTTL,
			RefreshTTL:                refreshTTL,
			RotationThresholdFraction: getEnvAsFloat("AUTH_REFRESH_ROTATION_FRACTION", 1.0/15.0),
			ClockLeeway:               leeway,
			BcryptCost:                getEnvAsInt("AUTH_BCRYPT_COST", 12),
			CookieSecure:              getEnvAsBool("COOKIE_SECURE", env == "production"),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("STORAGE_S3_BUCKET"),
			Region:          getEnv("STORAGE_S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("STORAGE_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("STORAGE_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("STORAGE_S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("STORAGE_PUBLIC_BASE_URL"),
			LocalDir:        getEnv("STORAGE_LOCAL_DIR", "./uploads"),
			LocalURLPrefix:  getEnv("STORAGE_LOCAL_URL_PREFIX", "/static/uploads"),
			MaxUploadBytes:  int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 10*1024*1024)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the session core cannot run with.
func (c *Config) Validate() error {
	a := c.Auth
	if strings.TrimSpace(a.AccessSecret) == "" || strings.TrimSpace(a.RefreshSecret) == "" {
		return fmt.Errorf("%w: AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET are required", ErrMisconfigured)
	}
	if a.AccessSecret == a.RefreshSecret {
		return fmt.Errorf("%w: access and refresh secrets must differ", ErrMisconfigured)
	}
	if c.App.IsProduction() {
		if a.AccessSecret == defaultAccessSecret || a.RefreshSecret == defaultRefreshSecret {
			return fmt.Errorf("%w: default signing secrets are not allowed in production", ErrMisconfigured)
		}
		if !a.CookieSecure {
			return fmt.Errorf("%w: COOKIE_SECURE must be true in production", ErrMisconfigured)
		}
	}
	if a.AccessTTL <= 0 || a.RefreshTTL <= 0 {
		return fmt.Errorf("%w: token TTLs must be > 0", ErrMisconfigured)
	}
	if a.AccessTTL >= a.RefreshTTL {
		return fmt.Errorf("%w: AUTH_ACCESS_TTL must be shorter than AUTH_REFRESH_TTL", ErrMisconfigured)
	}
	if a.RotationThresholdFraction <= 0 || a.RotationThresholdFraction >= 1 {
		return fmt.Errorf("%w: AUTH_REFRESH_ROTATION_FRACTION must be in (0,1)", ErrMisconfigured)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with production hardening.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
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

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, val, err)
	}
	return d, nil
}
