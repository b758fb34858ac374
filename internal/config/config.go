package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TEAMWORK_"

// Transport modes.
const (
	ModeStdio = "stdio"
	ModeHTTP  = "http"
)

// Cleanup queue backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config defines server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Transport   TransportConfig   `yaml:"transport" envPrefix:"TRANSPORT_"`
	Auth        AuthConfig        `yaml:"auth" envPrefix:"AUTH_"`
	DB          DBConfig          `yaml:"db" envPrefix:"DB_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
	Attachments AttachmentsConfig `yaml:"attachments" envPrefix:"ATTACHMENTS_"`
	Engagement  EngagementConfig  `yaml:"engagement" envPrefix:"ENGAGEMENT_"`
	Redis       RedisConfig       `yaml:"redis" envPrefix:"REDIS_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" env:"MODE"`
}

type AuthConfig struct {
	// Enabled requires a bearer API key on every HTTP request.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// StdioUser is the user id every request runs as when no key is resolved.
	StdioUser string `yaml:"stdio_user" env:"STDIO_USER"`
}

type DBConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	// Path is an optional log file, capped in size.
	Path string `yaml:"path" env:"PATH"`
}

type AttachmentsConfig struct {
	Dir            string        `yaml:"dir" env:"DIR"`
	CleanupBackend string        `yaml:"cleanup_backend" env:"CLEANUP_BACKEND"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
	MaxAttempts    int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF"`
}

type EngagementConfig struct {
	// ReconcileInterval is how often every project's counters are recomputed.
	// Zero disables the sweep.
	ReconcileInterval time.Duration `yaml:"reconcile_interval" env:"RECONCILE_INTERVAL"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: ModeStdio,
		},
		DB: DBConfig{
			Path: "teamwork.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Attachments: AttachmentsConfig{
			Dir:            "uploads",
			CleanupBackend: BackendSQLite,
			SweepInterval:  time.Minute,
			MaxAttempts:    5,
			RetryBackoff:   30 * time.Second,
		},
		Engagement: EngagementConfig{
			ReconcileInterval: time.Hour,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "teamwork",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Transport.Mode = strings.ToLower(strings.TrimSpace(cfg.Transport.Mode))
	cfg.Attachments.CleanupBackend = strings.ToLower(strings.TrimSpace(cfg.Attachments.CleanupBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Transport.Mode != ModeStdio && c.Transport.Mode != ModeHTTP {
		errs = append(errs, fmt.Errorf("transport.mode %q must be %s or %s", c.Transport.Mode, ModeStdio, ModeHTTP))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if c.Attachments.Dir == "" {
		errs = append(errs, errors.New("attachments.dir is required"))
	}
	switch c.Attachments.CleanupBackend {
	case BackendSQLite:
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis cleanup backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("attachments.cleanup_backend %q must be %s or %s",
			c.Attachments.CleanupBackend, BackendSQLite, BackendRedis))
	}
	if c.Attachments.SweepInterval <= 0 {
		errs = append(errs, errors.New("attachments.sweep_interval must be positive"))
	}
	if c.Attachments.MaxAttempts <= 0 {
		errs = append(errs, errors.New("attachments.max_attempts must be positive"))
	}
	if c.Attachments.RetryBackoff <= 0 {
		errs = append(errs, errors.New("attachments.retry_backoff must be positive"))
	}
	if c.Engagement.ReconcileInterval < 0 {
		errs = append(errs, errors.New("engagement.reconcile_interval must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
