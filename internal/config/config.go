// Package config loads service configuration from the environment, with an
// optional YAML file for deployments that prefer files over env vars.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `env:"SERVER_ADDR,default=:8080" yaml:"addr"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=10s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=15s" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s" yaml:"shutdown_timeout"`
	RateLimit       int           `env:"SERVER_RATE_LIMIT,default=20" yaml:"rate_limit"`
	RateBurst       int           `env:"SERVER_RATE_BURST,default=40" yaml:"rate_burst"`
	AllowedOrigins  []string      `env:"SERVER_ALLOWED_ORIGINS,default=*" yaml:"allowed_origins"`
}

// DatabaseConfig selects the persistence backend. An empty URL keeps the
// in-memory store.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" yaml:"url"`
}

// AuthConfig parameterizes the credential service. The signing secret is an
// explicit dependency; there is no process-wide default.
type AuthConfig struct {
	Secret     string        `env:"AUTH_SECRET" yaml:"secret"`
	TokenTTL   time.Duration `env:"AUTH_TOKEN_TTL,default=24h" yaml:"token_ttl"`
	BcryptCost int           `env:"AUTH_BCRYPT_COST,default=10" yaml:"bcrypt_cost"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `env:"LOG_LEVEL,default=info" yaml:"level"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromPath reads a YAML configuration file. The file is authoritative;
// deployments that want env overrides should use Load instead.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("AUTH_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be positive")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("SERVER_RATE_LIMIT must be positive")
	}
	return nil
}
