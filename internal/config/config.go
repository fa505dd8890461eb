package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Port        int
	Environment string
	JWTSecret   string
	CORSOrigins []string
	Database    DatabaseConfig
	Logging     LoggingConfig
	Executor    ExecutorConfig
	Scheduler   SchedulerConfig
	NATS        NATSConfig
	Notify      NotifyConfig
	Provision   ProvisionConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type            string // postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
}

// LoggingConfig selects the zap level and encoder
type LoggingConfig struct {
	Level  string
	Format string
}

// ExecutorConfig bounds check execution
type ExecutorConfig struct {
	Enabled             bool
	Concurrency         int
	BlockPrivateTargets bool
}

// SchedulerConfig controls the recurring trigger registry
type SchedulerConfig struct {
	Enabled       bool
	RetentionDays int
}

// NATSConfig enables the multi-process job queue when URL is set
type NATSConfig struct {
	URL     string
	Subject string
	Queue   string
}

// NotifyConfig throttles outgoing notifications
type NotifyConfig struct {
	RatePerMinute int
}

// ProvisionConfig is the browser runtime provisioning configuration.
// It is re-read from the environment at every provisioning attempt.
type ProvisionConfig struct {
	InstallPath        string
	InstallTimeout     time.Duration
	InstallCommand     string
	ExecutableGlob     string
	Dependencies       []string
	DepsInstallCommand string
	PollInterval       time.Duration
	OnStart            bool
}

// Enabled reports whether the NATS job queue is configured
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

// Load loads configuration from environment variables
func Load() *Config {
	v := newViper()

	env := v.GetString("ENVIRONMENT")
	cfg := &Config{
		Port:        v.GetInt("PORT"),
		Environment: env,
		JWTSecret:   loadJWTSecret(v, env),
		CORSOrigins: loadCORSOrigins(v, env),
		Database: DatabaseConfig{
			Type:         v.GetString("DATABASE_TYPE"),
			DSN:          databaseDSN(v),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			SlowQuery:       v.GetDuration("DB_SLOW_QUERY_THRESHOLD"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Executor: ExecutorConfig{
			Enabled:             v.GetBool("WORKER_ENABLED"),
			Concurrency:         v.GetInt("EXECUTOR_CONCURRENCY"),
			BlockPrivateTargets: v.GetBool("PROBE_BLOCK_PRIVATE_TARGETS"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("SCHEDULER_ENABLED"),
			RetentionDays: v.GetInt("RESULT_RETENTION_DAYS"),
		},
		NATS: NATSConfig{
			URL:     v.GetString("NATS_URL"),
			Subject: v.GetString("NATS_SUBJECT"),
			Queue:   v.GetString("NATS_QUEUE"),
		},
		Notify: NotifyConfig{
			RatePerMinute: v.GetInt("NOTIFY_RATE_PER_MINUTE"),
		},
		Provision: provisionFrom(v),
	}

	cfg.Database = cfg.Database.sizedFor(cfg.Executor)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

// LoadProvisioning reads the provisioning settings from the current
// process environment.
func LoadProvisioning() ProvisionConfig {
	return provisionFrom(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_SLOW_QUERY_THRESHOLD", "500ms")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("WORKER_ENABLED", true)
	v.SetDefault("EXECUTOR_CONCURRENCY", 2)
	v.SetDefault("PROBE_BLOCK_PRIVATE_TARGETS", false)
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("RESULT_RETENTION_DAYS", 90)
	v.SetDefault("NATS_SUBJECT", "uptivalab.checks")
	v.SetDefault("NATS_QUEUE", "uptivalab-workers")
	v.SetDefault("NOTIFY_RATE_PER_MINUTE", 30)

	v.SetDefault("BROWSER_INSTALL_PATH", "/var/lib/uptivalab/browsers")
	v.SetDefault("BROWSER_INSTALL_TIMEOUT", "10m")
	v.SetDefault("BROWSER_INSTALL_COMMAND",
		`npx --yes @puppeteer/browsers install chrome-headless-shell@stable --path "$BROWSER_INSTALL_PATH"`)
	v.SetDefault("BROWSER_EXECUTABLE_GLOB",
		"chrome-headless-shell/*/chrome-headless-shell-linux64/chrome-headless-shell")
	v.SetDefault("BROWSER_DEPS", "libnss3.so,libatk-1.0.so.0,libgbm.so.1,libasound.so.2")
	v.SetDefault("BROWSER_DEPS_INSTALL_COMMAND", "")
	v.SetDefault("PROVISION_POLL_INTERVAL", "1s")
	v.SetDefault("BROWSER_PROVISION_ON_START", true)

	return v
}

func provisionFrom(v *viper.Viper) ProvisionConfig {
	return ProvisionConfig{
		InstallPath:        v.GetString("BROWSER_INSTALL_PATH"),
		InstallTimeout:     v.GetDuration("BROWSER_INSTALL_TIMEOUT"),
		InstallCommand:     v.GetString("BROWSER_INSTALL_COMMAND"),
		ExecutableGlob:     v.GetString("BROWSER_EXECUTABLE_GLOB"),
		Dependencies:       splitAndTrim(v.GetString("BROWSER_DEPS"), ","),
		DepsInstallCommand: v.GetString("BROWSER_DEPS_INSTALL_COMMAND"),
		PollInterval:       v.GetDuration("PROVISION_POLL_INTERVAL"),
		OnStart:            v.GetBool("BROWSER_PROVISION_ON_START"),
	}
}

// reservedConns covers the scheduler, the API and housekeeping jobs
const reservedConns = 4

// sizedFor raises the pool so every in-flight check can load its monitor
// and persist its result without queueing behind another check.
func (c DatabaseConfig) sizedFor(exec ExecutorConfig) DatabaseConfig {
	if exec.Enabled {
		if floor := 2*exec.Concurrency + reservedConns; c.MaxOpenConns > 0 && c.MaxOpenConns < floor {
			c.MaxOpenConns = floor
		}
	}
	if c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	return c
}

func databaseDSN(v *viper.Viper) string {
	if dsn := v.GetString("DATABASE_DSN"); dsn != "" {
		return dsn
	}
	return buildPostgresDSN(v)
}

func buildPostgresDSN(v *viper.Viper) string {
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "uptime")
	v.SetDefault("POSTGRES_PASSWORD", "secret")
	v.SetDefault("POSTGRES_DB", "uptime")
	v.SetDefault("POSTGRES_SSLMODE", "disable")

	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(v.GetString("POSTGRES_USER"), v.GetString("POSTGRES_PASSWORD")),
		Host:   fmt.Sprintf("%s:%s", v.GetString("POSTGRES_HOST"), v.GetString("POSTGRES_PORT")),
		Path:   v.GetString("POSTGRES_DB"),
	}

	query := u.Query()
	query.Set("sslmode", v.GetString("POSTGRES_SSLMODE"))
	u.RawQuery = query.Encode()

	return u.String()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("at least one CORS origin must be configured")
	}

	if c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Executor.Concurrency < 1 {
		return fmt.Errorf("EXECUTOR_CONCURRENCY must be at least 1")
	}

	if c.NATS.Enabled() && (c.NATS.Subject == "" || c.NATS.Queue == "") {
		return fmt.Errorf("NATS_SUBJECT and NATS_QUEUE are required when NATS_URL is set")
	}

	if !c.Scheduler.Enabled && !c.Executor.Enabled {
		return fmt.Errorf("at least one of SCHEDULER_ENABLED or WORKER_ENABLED must be true")
	}

	if c.Scheduler.Enabled && !c.Executor.Enabled && !c.NATS.Enabled() {
		return fmt.Errorf("NATS_URL is required when WORKER_ENABLED is false")
	}

	if c.Provision.InstallTimeout <= 0 {
		return fmt.Errorf("BROWSER_INSTALL_TIMEOUT must be positive")
	}

	return nil
}

func loadJWTSecret(v *viper.Viper, env string) string {
	secret := v.GetString("JWT_SECRET")

	// If JWT_SECRET is not set, generate a random one for development
	if secret == "" {
		if env == "production" {
			log.Fatal("FATAL: JWT_SECRET environment variable is required in production")
		}

		log.Println("WARNING: JWT_SECRET not set. Generating random secret for development.")
		return generateRandomSecret()
	}

	if len(secret) < 16 {
		log.Fatal("FATAL: JWT_SECRET must be at least 16 characters long")
	}

	return secret
}

func loadCORSOrigins(v *viper.Viper, env string) []string {
	if appURL := strings.TrimRight(v.GetString("APP_URL"), "/"); appURL != "" {
		return []string{appURL}
	}

	if env != "development" {
		log.Println("WARNING: APP_URL not set. Using default localhost origins.")
	}
	return []string{"http://localhost:3000", "http://localhost:8080"}
}

func splitAndTrim(s, sep string) []string {
	var parts []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal("Failed to generate random secret:", err)
	}
	return base64.URLEncoding.EncodeToString(bytes)
}
