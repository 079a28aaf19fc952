package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Supported persistence backends for stored files.
const (
	BackendPostgres = "postgres"
	BackendMinIO    = "minio"
	BackendMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds the optional Redis connection used to coordinate sweeps between replicas.
// An empty Addr disables the distributed lock.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	LockKey    string
	LockTTLSec int
}

// StorageConfig controls the file storage engine and its expiration sweeper.
type StorageConfig struct {
	Backend          string
	InitSchema       bool
	DefaultTTLSec    int
	MaxPayloadBytes  int64
	SweepIntervalSec int
}

// SessionConfig controls how the web layer resolves the per-request context.
type SessionConfig struct {
	CookieName string
	Header     string
	TTLSec     int
	Secure     bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	LogLevel string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Session  SessionConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			LockKey:    getEnv("REDIS_SWEEP_LOCK_KEY", "uploadstore:sweep-lock"),
			LockTTLSec: getEnvInt("REDIS_SWEEP_LOCK_TTL_SEC", 30),
		},
		Storage: StorageConfig{
			Backend:          strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),
			InitSchema:       getEnvBool("STORAGE_INIT_SCHEMA", true),
			DefaultTTLSec:    getEnvInt("STORAGE_DEFAULT_TTL_SEC", 1800),
			MaxPayloadBytes:  getEnvInt64("STORAGE_MAX_PAYLOAD_BYTES", 1<<31-1),
			SweepIntervalSec: getEnvInt("SWEEP_INTERVAL_SEC", 60),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE", "UPLOADSTORE_SESSION"),
			Header:     getEnv("SESSION_HEADER", "X-Session-ID"),
			TTLSec:     getEnvInt("SESSION_TTL_SEC", 1800),
			Secure:     getEnvBool("SESSION_COOKIE_SECURE", false),
		},
	}
}

// Validate rejects values the application cannot start with.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendPostgres, BackendMinIO, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported storage backend %q", c.Storage.Backend))
	}
	if c.Storage.SweepIntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("sweep interval must be greater than 0, got %d", c.Storage.SweepIntervalSec))
	}
	if c.Storage.DefaultTTLSec < 0 {
		errs = append(errs, fmt.Errorf("default ttl must not be negative, got %d", c.Storage.DefaultTTLSec))
	}
	if c.Storage.MaxPayloadBytes <= 0 || c.Storage.MaxPayloadBytes > 1<<31-1 {
		errs = append(errs, fmt.Errorf("max payload bytes must be in (0, %d], got %d", int64(1<<31-1), c.Storage.MaxPayloadBytes))
	}
	if c.Session.TTLSec < 0 {
		errs = append(errs, fmt.Errorf("session ttl must not be negative, got %d", c.Session.TTLSec))
	}
	if c.Redis.Addr != "" && c.Redis.LockTTLSec <= 0 {
		errs = append(errs, fmt.Errorf("redis lock ttl must be greater than 0, got %d", c.Redis.LockTTLSec))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}
