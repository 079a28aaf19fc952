package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STORAGE_BACKEND", "MinIO")
	t.Setenv("SWEEP_INTERVAL_SEC", "15")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, BackendMinIO, cfg.Storage.Backend)
	assert.Equal(t, 15, cfg.Storage.SweepIntervalSec)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORAGE_BACKEND", "SWEEP_INTERVAL_SEC", "STORAGE_INIT_SCHEMA", "STORAGE_DEFAULT_TTL_SEC", "SESSION_COOKIE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, 60, cfg.Storage.SweepIntervalSec)
	assert.True(t, cfg.Storage.InitSchema)
	assert.Equal(t, 1800, cfg.Storage.DefaultTTLSec)
	assert.Equal(t, int64(1<<31-1), cfg.Storage.MaxPayloadBytes)
	assert.Equal(t, "UPLOADSTORE_SESSION", cfg.Session.CookieName)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *AppConfig) {},
		},
		{
			name:    "zero sweep interval",
			mutate:  func(c *AppConfig) { c.Storage.SweepIntervalSec = 0 },
			wantErr: "sweep interval must be greater than 0",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *AppConfig) { c.Storage.Backend = "dynamo" },
			wantErr: `unsupported storage backend "dynamo"`,
		},
		{
			name:    "negative ttl",
			mutate:  func(c *AppConfig) { c.Storage.DefaultTTLSec = -1 },
			wantErr: "default ttl must not be negative",
		},
		{
			name:    "payload limit beyond int32",
			mutate:  func(c *AppConfig) { c.Storage.MaxPayloadBytes = 1 << 31 },
			wantErr: "max payload bytes",
		},
		{
			name: "redis lock ttl",
			mutate: func(c *AppConfig) {
				c.Redis.Addr = "localhost:6379"
				c.Redis.LockTTLSec = 0
			},
			wantErr: "redis lock ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &AppConfig{
				Storage: StorageConfig{
					Backend:          BackendMemory,
					DefaultTTLSec:    60,
					MaxPayloadBytes:  1024,
					SweepIntervalSec: 60,
				},
				Session: SessionConfig{TTLSec: 60},
				Redis:   RedisConfig{LockTTLSec: 30},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvInt64(t *testing.T) {
	key := "TEST_INT64_VAR"
	defer os.Unsetenv(key)

	os.Setenv(key, "4294967296")
	assert.Equal(t, int64(4294967296), getEnvInt64(key, 0))

	os.Setenv(key, "nope")
	assert.Equal(t, int64(7), getEnvInt64(key, 7))
}
