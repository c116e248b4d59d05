// Package config loads service configuration from .env, environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory     = "memory"
	DriverPostgres   = "postgres"
	DriverRedis      = "redis"
	DriverPebble     = "pebble"
	DriverClickhouse = "clickhouse"
)

// Config holds all configuration for the service.
type Config struct {
	Port       int              `mapstructure:"port"`
	DB         DBConfig         `mapstructure:"db"`
	Source     SourceConfig     `mapstructure:"source"`
	Refresh    RefreshConfig    `mapstructure:"refresh"`
	Store      StoreConfig      `mapstructure:"store"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Pebble     PebbleConfig     `mapstructure:"pebble"`
	Clickhouse ClickhouseConfig `mapstructure:"clickhouse"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Log        LogConfig        `mapstructure:"log"`
}

// DBConfig holds PostgreSQL connection parameters.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// SourceConfig configures the upstream ticker API.
type SourceConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RefreshConfig configures the refresh cycle.
// A zero Interval refreshes once at startup only.
type RefreshConfig struct {
	Limit      int           `mapstructure:"limit"`
	Interval   time.Duration `mapstructure:"interval"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// StoreConfig selects the snapshot backend.
type StoreConfig struct {
	Driver  string `mapstructure:"driver"`
	Migrate bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type PebbleConfig struct {
	Dir string `mapstructure:"dir"`
}

type ClickhouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type HTTPConfig struct {
	StaticDir string `mapstructure:"static_dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var keys = []string{
	"port",
	"db.host", "db.port", "db.name", "db.user", "db.password", "db.sslmode", "db.max_conns", "db.min_conns",
	"source.url", "source.timeout",
	"refresh.limit", "refresh.interval", "refresh.max_retries",
	"store.driver", "store.migrate",
	"redis.addr", "redis.password", "redis.db", "redis.key",
	"pebble.dir",
	"clickhouse.dsn",
	"http.static_dir",
	"log.level", "log.format",
}

// Load reads configuration from an optional .env file, environment variables and defaults.
func Load() (*Config, error) {
	// A missing .env is fine; real env vars take precedence over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// "db.host" -> "DB_HOST"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)

	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslmode", "prefer")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)

	v.SetDefault("source.url", "https://api.wazirx.com/api/v2/tickers")
	v.SetDefault("source.timeout", "10s")

	v.SetDefault("refresh.limit", 10)
	v.SetDefault("refresh.interval", "0s")
	v.SetDefault("refresh.max_retries", 0)

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.migrate", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "tickers:snapshot")

	v.SetDefault("pebble.dir", "data/pebble")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// applyDefaults fills zero values that an explicit empty env var may have produced.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "prefer"
	}
	if c.Source.Timeout <= 0 {
		c.Source.Timeout = 10 * time.Second
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = DriverPostgres
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate reports missing or inconsistent settings.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Refresh.Limit < 1 {
		return fmt.Errorf("refresh limit must be at least 1, got %d", c.Refresh.Limit)
	}
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("refresh interval must not be negative, got %s", c.Refresh.Interval)
	}
	if c.Refresh.MaxRetries < 0 {
		return fmt.Errorf("refresh max retries must not be negative, got %d", c.Refresh.MaxRetries)
	}
	if _, err := url.ParseRequestURI(c.Source.URL); err != nil {
		return fmt.Errorf("invalid source url %q: %w", c.Source.URL, err)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		var missing []string
		if c.DB.Host == "" {
			missing = append(missing, "DB_HOST")
		}
		if c.DB.Name == "" {
			missing = append(missing, "DB_NAME")
		}
		if c.DB.User == "" {
			missing = append(missing, "DB_USER")
		}
		if len(missing) > 0 {
			return fmt.Errorf("postgres store requires %s", strings.Join(missing, ", "))
		}
		if c.DB.MinConns > c.DB.MaxConns && c.DB.MaxConns > 0 {
			return fmt.Errorf("db min_conns (%d) exceeds max_conns (%d)", c.DB.MinConns, c.DB.MaxConns)
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis store requires REDIS_ADDR")
		}
	case DriverPebble:
		if c.Pebble.Dir == "" {
			return fmt.Errorf("pebble store requires PEBBLE_DIR")
		}
	case DriverClickhouse:
		if c.Clickhouse.DSN == "" {
			return fmt.Errorf("clickhouse store requires CLICKHOUSE_DSN")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}

// ConnString builds a PostgreSQL connection URL with user and password as userinfo.
func (c DBConfig) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
