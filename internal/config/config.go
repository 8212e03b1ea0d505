package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds environment-driven configuration. Values from the optional
// YAML file named by CONFIG_FILE are applied first; environment variables
// override them.
type Config struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	Isolation   string `yaml:"db_isolation"`
	JWTSecret   string `yaml:"jwt_secret"`

	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Log         LogConfig         `yaml:"log"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type IdempotencyConfig struct {
	Backend   string        `yaml:"backend"`
	RedisAddr string        `yaml:"redis_addr"`
	BoltPath  string        `yaml:"bolt_path"`
	TTL       time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetryConfig struct {
	Exporter     string `yaml:"exporter"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

func defaults() Config {
	return Config{
		Addr:      ":8080",
		Isolation: "serializable",
		Idempotency: IdempotencyConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			BoltPath:  "idempotency.db",
			TTL:       24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			ServiceName: "shop-admin-backend",
		},
	}
}

// Load builds the configuration from defaults, CONFIG_FILE and the
// environment, then validates it.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, "SHOP_ADDR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.Isolation, "DB_ISOLATION")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.Idempotency.Backend, "IDEMPOTENCY_BACKEND")
	setString(&c.Idempotency.RedisAddr, "REDIS_ADDR")
	setString(&c.Idempotency.BoltPath, "IDEMPOTENCY_BOLT_PATH")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Telemetry.Exporter, "OTEL_EXPORTER")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&c.Telemetry.ServiceName, "SERVICE_NAME")

	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
		}
		c.Idempotency.TTL = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate rejects unknown enum values.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if !oneOf(c.Isolation, "serializable", "repeatable-read", "repeatable_read", "read-committed", "read_committed") {
		return fmt.Errorf("unknown DB_ISOLATION %q", c.Isolation)
	}
	if !oneOf(c.Idempotency.Backend, "memory", "redis", "bolt") {
		return fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.Idempotency.Backend)
	}
	if c.Idempotency.TTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("unknown LOG_LEVEL %q", c.Log.Level)
	}
	if !oneOf(c.Log.Format, "text", "json") {
		return fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format)
	}
	if !oneOf(c.Telemetry.Exporter, "none", "stdout", "otlp") {
		return fmt.Errorf("unknown OTEL_EXPORTER %q", c.Telemetry.Exporter)
	}
	if c.Telemetry.Exporter == "otlp" && c.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required for the otlp exporter")
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
