package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Environment: "development",
		JWTSecret:   "dev-secret-0123456789",
		CORSOrigins: []string{"http://localhost:3000"},
		Database:    DatabaseConfig{Type: "postgres"},
		Executor:    ExecutorConfig{Enabled: true, Concurrency: 2},
		Scheduler:   SchedulerConfig{Enabled: true},
		Provision:   ProvisionConfig{InstallTimeout: time.Minute},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "short secret in production",
			mutate:  func(c *Config) { c.Environment = "production" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "unsupported database",
			mutate:  func(c *Config) { c.Database.Type = "sqlite" },
			wantErr: "unsupported database type",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Executor.Concurrency = 0 },
			wantErr: "EXECUTOR_CONCURRENCY",
		},
		{
			name: "nats without queue",
			mutate: func(c *Config) {
				c.NATS = NATSConfig{URL: "nats://localhost:4222", Subject: "checks"}
			},
			wantErr: "NATS_QUEUE",
		},
		{
			name:    "scheduler without workers",
			mutate:  func(c *Config) { c.Executor.Enabled = false },
			wantErr: "WORKER_ENABLED",
		},
		{
			name: "no role",
			mutate: func(c *Config) {
				c.Executor.Enabled = false
				c.Scheduler.Enabled = false
			},
			wantErr: "SCHEDULER_ENABLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadProvisioning_ReadsEnvironmentAtCallTime(t *testing.T) {
	t.Setenv("BROWSER_INSTALL_PATH", "/tmp/first")
	t.Setenv("BROWSER_INSTALL_TIMEOUT", "90s")
	t.Setenv("BROWSER_DEPS", " libnss3.so , ,libgbm.so.1")

	first := LoadProvisioning()
	assert.Equal(t, "/tmp/first", first.InstallPath)
	assert.Equal(t, 90*time.Second, first.InstallTimeout)
	assert.Equal(t, []string{"libnss3.so", "libgbm.so.1"}, first.Dependencies)

	t.Setenv("BROWSER_INSTALL_PATH", "/tmp/second")
	assert.Equal(t, "/tmp/second", LoadProvisioning().InstallPath)
}

func TestLoadProvisioning_Defaults(t *testing.T) {
	cfg := LoadProvisioning()
	assert.Equal(t, 10*time.Minute, cfg.InstallTimeout)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.True(t, cfg.OnStart)
	assert.NotEmpty(t, cfg.InstallCommand)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = NewLogger(LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestDatabaseConfig_SizedForExecutor(t *testing.T) {
	tests := []struct {
		name     string
		db       DatabaseConfig
		exec     ExecutorConfig
		wantOpen int
		wantIdle int
	}{
		{
			name:     "raised to cover concurrency",
			db:       DatabaseConfig{MaxOpenConns: 5, MaxIdleConns: 5},
			exec:     ExecutorConfig{Enabled: true, Concurrency: 10},
			wantOpen: 24,
			wantIdle: 5,
		},
		{
			name:     "large pool kept",
			db:       DatabaseConfig{MaxOpenConns: 50, MaxIdleConns: 5},
			exec:     ExecutorConfig{Enabled: true, Concurrency: 2},
			wantOpen: 50,
			wantIdle: 5,
		},
		{
			name:     "scheduler only",
			db:       DatabaseConfig{MaxOpenConns: 3, MaxIdleConns: 8},
			exec:     ExecutorConfig{Concurrency: 10},
			wantOpen: 3,
			wantIdle: 3,
		},
		{
			name:     "unlimited stays unlimited",
			db:       DatabaseConfig{MaxOpenConns: 0, MaxIdleConns: 2},
			exec:     ExecutorConfig{Enabled: true, Concurrency: 10},
			wantOpen: 0,
			wantIdle: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.db.sizedFor(tt.exec)
			assert.Equal(t, tt.wantOpen, got.MaxOpenConns)
			assert.Equal(t, tt.wantIdle, got.MaxIdleConns)
		})
	}
}

func TestLoad_DatabaseTimings(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_SLOW_QUERY_THRESHOLD", "2s")
	t.Setenv("EXECUTOR_CONCURRENCY", "16")
	t.Setenv("WORKER_ENABLED", "true")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")

	cfg := Load()
	assert.Equal(t, 2*time.Second, cfg.Database.SlowQuery)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 36, cfg.Database.MaxOpenConns)
}
