// Package config loads the service configuration from defaults, an optional
// YAML file, an optional .env file and TODO_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/adeilh/rakh-todos/internal/logging"
)

// EnvPrefix is prepended to every environment key, e.g. TODO_AUTH_SECRET.
const EnvPrefix = "TODO"

// MinSecretLength is the shortest accepted signing secret in bytes.
const MinSecretLength = 16

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	BackendRedis   = "redis"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Registry RegistryConfig `mapstructure:"registry"`
	Log      logging.Config `mapstructure:"log"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	// Secret signs every token. Rotating it invalidates all sessions.
	Secret            string `mapstructure:"secret"`
	PasswordAlgorithm string `mapstructure:"password_algorithm"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	RetryTimeout    time.Duration `mapstructure:"retry_timeout"`
	Migrate         bool          `mapstructure:"migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type RegistryConfig struct {
	// Backend is postgres, redis or memory. Empty follows the database driver.
	Backend string `mapstructure:"backend"`
}

var defaults = map[string]any{
	"server.address":             ":3000",
	"server.read_timeout":        15 * time.Second,
	"server.write_timeout":       15 * time.Second,
	"server.shutdown_timeout":    10 * time.Second,
	"auth.secret":                "",
	"auth.password_algorithm":    "hmac-sha256",
	"database.driver":            DriverPostgres,
	"database.dsn":               "",
	"database.max_open_conns":    10,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": 30 * time.Minute,
	"database.retry_interval":    5 * time.Second,
	"database.retry_timeout":     time.Minute,
	"database.migrate":           true,
	"redis.addr":                 "127.0.0.1:6379",
	"redis.password":             "",
	"redis.db":                   0,
	"redis.prefix":               "session",
	"registry.backend":           "",
	"log.level":                  "info",
	"log.format":                 "json",
	"log.output":                 "stdout",
	"log.no_color":               false,
}

type loadOptions struct {
	configFile string
	envFile    string
}

type Option func(*loadOptions)

// WithConfigFile reads a YAML file before the environment is applied.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

// WithEnvFile loads a dotenv file. Variables already set in the process win.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// Load resolves the configuration and validates it.
func Load(opts ...Option) (Config, error) {
	lo := loadOptions{configFile: os.Getenv("CONFIG_FILE"), envFile: ".env"}
	for _, opt := range opts {
		if opt != nil {
			opt(&lo)
		}
	}

	if lo.envFile != "" && fileExists(lo.envFile) {
		if err := godotenv.Load(lo.envFile); err != nil {
			return Config{}, fmt.Errorf("config: load env file %s: %w", lo.envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if lo.configFile != "" {
		v.SetConfigFile(lo.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", lo.configFile, err)
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills values the loader could not resolve.
func (c *Config) ApplyDefaults() {
	c.Log.ApplyDefaults()
	if c.Registry.Backend == "" {
		c.Registry.Backend = c.Database.Driver
	}
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("auth.secret must be at least %d bytes", MinSecretLength))
	}
	if !slices.Contains([]string{"hmac-sha256", "argon2id"}, c.Auth.PasswordAlgorithm) {
		errs = append(errs, fmt.Errorf("auth.password_algorithm must be hmac-sha256 or argon2id (got: %s)", c.Auth.PasswordAlgorithm))
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres driver"))
		}
		if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
			errs = append(errs, errors.New("database pool sizes must not be negative"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or memory (got: %s)", c.Database.Driver))
	}

	switch c.Registry.Backend {
	case DriverPostgres:
		if c.Database.Driver != DriverPostgres {
			errs = append(errs, errors.New("registry.backend postgres requires database.driver postgres"))
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis registry"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("registry.backend must be postgres, redis or memory (got: %s)", c.Registry.Backend))
	}

	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
