package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Data     Data     `mapstructure:"data"`
	Remote   Remote   `mapstructure:"remote"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Cache    Cache    `mapstructure:"cache"`
}

// Data holds the configuration for loading the market table.
type Data struct {
	// Source is one of "file", "http" or "database".
	Source                 string `mapstructure:"source"`
	Path                   string `mapstructure:"path"`
	URL                    string `mapstructure:"url"`
	MovingAverageWindow    int    `mapstructure:"moving_average_window"`
	PartitionMovingAverage bool   `mapstructure:"partition_moving_average"`
	ReloadInterval         int    `mapstructure:"reload_interval"`
}

// Remote holds the configuration for downloading the CSV over HTTP.
type Remote struct {
	Timeout        int     `mapstructure:"timeout"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Cache holds the configuration for the optional Redis chart cache.
// An empty Addr disables caching.
type Cache struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	TTL       int    `mapstructure:"ttl"`
	Namespace string `mapstructure:"namespace"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error: defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional and only seeds the environment
	if err = godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal only sees env vars for keys viper already knows, so every
	// key needs a default.
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.source", "file")
	v.SetDefault("data.path", "./MarketData.csv")
	v.SetDefault("data.url", "")
	v.SetDefault("data.moving_average_window", 5)
	v.SetDefault("data.partition_moving_average", false)
	v.SetDefault("data.reload_interval", 0)

	v.SetDefault("remote.timeout", 30)
	v.SetDefault("remote.rate_limit", 2)
	v.SetDefault("remote.rate_limit_burst", 1)
	v.SetDefault("remote.max_retries", 3)

	v.SetDefault("server.port", 8501)
	v.SetDefault("database.dsn", "market.db")

	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 300)
	v.SetDefault("cache.namespace", "charts")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}
