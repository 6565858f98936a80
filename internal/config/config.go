// Package config loads engine configuration from a YAML file and
// environment variables (ENC_ prefix, dots become underscores).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/encore-live/server/pkg/db"

	"github.com/spf13/viper"
)

// Config is the full engine configuration.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Postgres  db.PostgresConfig `mapstructure:"postgres"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Auth      AuthConfig        `mapstructure:"auth"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	WS        WSConfig          `mapstructure:"ws"`
	Log       LogConfig         `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// RateLimitConfig caps per-user vote attempts.
type RateLimitConfig struct {
	VoteLimit  int64         `mapstructure:"vote_limit"`
	VoteWindow time.Duration `mapstructure:"vote_window"`
}

// WSConfig holds websocket settings.
type WSConfig struct {
	MaxConnections int `mapstructure:"max_connections"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. path may be empty; then ./config/config.yaml and
// ./config.yaml are tried, and a missing file is fine as long as env vars
// cover the required values.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ENC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret is required")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.database", "encore")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_open_conns", 25)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("auth.issuer", "encore")
	v.SetDefault("auth.expiry", 24*time.Hour)

	v.SetDefault("rate_limit.vote_limit", 30)
	v.SetDefault("rate_limit.vote_window", time.Minute)

	v.SetDefault("ws.max_connections", 2000)

	v.SetDefault("log.level", "info")
}
