package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Stocks       StocksConfig       `mapstructure:"stocks"`
	Search       SearchConfig       `mapstructure:"search"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Redis        RedisConfig        `mapstructure:"redis"`
}

type AppConfig struct {
	Environment string `mapstructure:"environment"` // "dev" or "prod"
}

// StocksConfig describes the remote stock list endpoint and its retry policy.
type StocksConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
}

type SearchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type CacheConfig struct {
	Driver          string        `mapstructure:"driver"` // "memory", "postgres" or "redis"
	TTL             time.Duration `mapstructure:"ttl"`
	BatchSize       int           `mapstructure:"batch_size"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 disables the background refresher
}

type ConnectivityConfig struct {
	ProbeAddr string        `mapstructure:"probe_addr"` // host:port, derived from stocks.endpoint when empty
	Interval  time.Duration `mapstructure:"interval"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "dev")

	v.SetDefault("stocks.endpoint", "https://gist.githubusercontent.com/priyanshrastogi/0e1d4f8d517698cfdced49f5e59567be/raw/9158ad254e92aaffe215e950f4846a23a0680703/mock-stocks.json")
	v.SetDefault("stocks.timeout", 30*time.Second)
	v.SetDefault("stocks.max_retries", 3)
	v.SetDefault("stocks.initial_delay", 300*time.Millisecond)
	v.SetDefault("stocks.backoff_factor", 2.0)

	v.SetDefault("search.debounce", 300*time.Millisecond)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.batch_size", 100)
	v.SetDefault("cache.refresh_interval", time.Duration(0))

	v.SetDefault("connectivity.probe_addr", "")
	v.SetDefault("connectivity.interval", time.Second)
	v.SetDefault("connectivity.timeout", 2*time.Second)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "stocksearch")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.create_db", false)
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "stocks:cache")
}

// Load loads application configuration using Viper.
// It reads config.yaml (or the file at path when non-empty), falls back to
// defaults when no file exists, and overrides with STOCKSEARCH_* environment variables.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win either way
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., STOCKSEARCH_CACHE_DRIVER)
	v.SetEnvPrefix("stocksearch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Stocks.Endpoint == "" {
		return errors.New("stocks.endpoint must be set")
	}
	if c.Stocks.MaxRetries < 1 {
		return fmt.Errorf("stocks.max_retries must be >= 1, got %d", c.Stocks.MaxRetries)
	}
	if c.Stocks.BackoffFactor < 1 {
		return fmt.Errorf("stocks.backoff_factor must be >= 1, got %v", c.Stocks.BackoffFactor)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Cache.BatchSize < 1 {
		return fmt.Errorf("cache.batch_size must be >= 1, got %d", c.Cache.BatchSize)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative, got %s", c.Search.Debounce)
	}
	return nil
}
