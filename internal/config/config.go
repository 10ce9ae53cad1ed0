package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/assessment-engine/internal/normalize"
)

// Config holds all configuration for assessment-engine
type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Backend    BackendConfig      `yaml:"backend"`
	Redis      RedisConfig        `yaml:"redis"`
	Database   DatabaseConfig     `yaml:"database"`
	Timer      TimerConfig        `yaml:"timer"`
	Cleanup    CleanupConfig      `yaml:"cleanup"`
	Normalizer normalize.Defaults `yaml:"normalizer"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BackendConfig points at the assessment backend
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig holds Redis configuration. An empty address disables tab snapshots.
type RedisConfig struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

// DatabaseConfig holds PostgreSQL configuration. An empty DSN disables the funnel journal.
type DatabaseConfig struct {
	DSN           string `yaml:"dsn"`
	MigrationsDir string `yaml:"migrations_dir"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
	MaxIdleConns  int    `yaml:"max_idle_conns"`
}

// TimerConfig holds countdown timer configuration
type TimerConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// CleanupConfig holds journal retention worker configuration
type CleanupConfig struct {
	Interval         time.Duration `yaml:"interval"`
	JournalRetention time.Duration `yaml:"journal_retention"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		// Snapshots and the journal are off until an address or DSN is set
		Redis: RedisConfig{
			SnapshotTTL: 24 * time.Hour,
		},
		Timer: TimerConfig{
			TickInterval: time.Second,
		},
		Cleanup: CleanupConfig{
			Interval:         time.Hour,
			JournalRetention: 90 * 24 * time.Hour,
		},
		Normalizer: normalize.DefaultTable(),
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any), then environment variables
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.AllowedOrigins = getEnvAsList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Backend.URL = getEnv("BACKEND_URL", c.Backend.URL)
	c.Backend.Timeout = getEnvAsDuration("BACKEND_TIMEOUT", c.Backend.Timeout)

	c.Redis.Address = getEnv("REDIS_ADDRESS", c.Redis.Address)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.SnapshotTTL = getEnvAsDuration("REDIS_SNAPSHOT_TTL", c.Redis.SnapshotTTL)

	c.Database.DSN = getEnv("DATABASE_DSN", c.Database.DSN)
	c.Database.MigrationsDir = getEnv("MIGRATIONS_DIR", c.Database.MigrationsDir)
	c.Database.MaxOpenConns = getEnvAsInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvAsInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.Timer.TickInterval = getEnvAsDuration("TIMER_TICK_INTERVAL", c.Timer.TickInterval)

	c.Cleanup.Interval = getEnvAsDuration("CLEANUP_INTERVAL", c.Cleanup.Interval)
	c.Cleanup.JournalRetention = getEnvAsDuration("JOURNAL_RETENTION", c.Cleanup.JournalRetention)

	c.Normalizer.DurationMinutes = getEnvAsInt("DEFAULT_DURATION_MINUTES", c.Normalizer.DurationMinutes)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend URL is required")
	}
	if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend URL: %q", c.Backend.URL)
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}

	if c.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer tick interval must be positive")
	}

	if err := c.Normalizer.Validate(); err != nil {
		return fmt.Errorf("invalid normalizer defaults: %w", err)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
