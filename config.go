package pgschema

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DatabaseURLEnv is the environment variable holding the connection string.
const DatabaseURLEnv = "DATABASE_URL"

// ErrMissingDatabaseURL is returned when DATABASE_URL is unset or blank.
var ErrMissingDatabaseURL = errors.New(DatabaseURLEnv + " must be set to a PostgreSQL connection string")

// Config is the complete server configuration, read from the environment.
type Config struct {
	DatabaseURL string        `env:"DATABASE_URL"`
	Pool        PoolConfig    `envPrefix:"PGSCHEMA_POOL_"`
	Query       QueryConfig   `envPrefix:"PGSCHEMA_QUERY_"`
	Logging     LoggingConfig `envPrefix:"PGSCHEMA_LOG_"`
}

// PoolConfig holds connection pool settings. Zero durations keep the
// pgxpool defaults.
type PoolConfig struct {
	MaxConns          int           `env:"MAX_CONNS" envDefault:"5"`
	MinConns          int           `env:"MIN_CONNS" envDefault:"0"`
	MaxConnLifetime   time.Duration `env:"MAX_CONN_LIFETIME"`
	MaxConnIdleTime   time.Duration `env:"MAX_CONN_IDLE_TIME"`
	HealthCheckPeriod time.Duration `env:"HEALTH_CHECK_PERIOD"`
}

// QueryConfig holds catalog query deadlines. Zero disables the deadline.
type QueryConfig struct {
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"30s"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"5s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`    // debug, info, warn, error
	Format string `env:"FORMAT" envDefault:"json"`   // json, text
	Output string `env:"OUTPUT" envDefault:"stderr"` // stderr, or file path
}

// LoadConfig loads envFile (if it exists) without overriding variables
// already set, then parses and validates the process environment.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		}
	}
	return parseConfig(env.Options{})
}

// LoadConfigFromMap parses and validates configuration from environ
// instead of the process environment.
func LoadConfigFromMap(environ map[string]string) (*Config, error) {
	return parseConfig(env.Options{Environment: environ})
}

func parseConfig(opts env.Options) (*Config, error) {
	var config Config
	if err := env.ParseWithOptions(&config, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return ErrMissingDatabaseURL
	}
	if c.Pool.MaxConns <= 0 {
		return fmt.Errorf("PGSCHEMA_POOL_MAX_CONNS must be > 0, got %d", c.Pool.MaxConns)
	}
	if c.Pool.MinConns < 0 || c.Pool.MinConns > c.Pool.MaxConns {
		return fmt.Errorf("PGSCHEMA_POOL_MIN_CONNS must be between 0 and %d, got %d", c.Pool.MaxConns, c.Pool.MinConns)
	}
	if c.Query.Timeout < 0 || c.Query.CompletionTimeout < 0 {
		return errors.New("PGSCHEMA_QUERY_* timeouts must be >= 0")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("PGSCHEMA_LOG_LEVEL must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("PGSCHEMA_LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}
	if c.Logging.Output == "stdout" {
		return errors.New("PGSCHEMA_LOG_OUTPUT cannot be stdout: stdout carries the MCP stream")
	}
	return nil
}
