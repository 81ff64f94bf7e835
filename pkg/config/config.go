package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"127.0.0.1"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Broker struct {
		BaseURL string        `yaml:"base_url" default:"http://127.0.0.1:5000"`
		Timeout time.Duration `yaml:"timeout" default:"30s"`
		// UsersCacheTTL keeps the user list for the order form; 0 disables.
		UsersCacheTTL time.Duration `yaml:"users_cache_ttl" default:"30s"`
	} `yaml:"broker"`
	Feed struct {
		SocketPath       string        `yaml:"socket_path" default:"/socket.io/"`
		HandshakeTimeout time.Duration `yaml:"handshake_timeout" default:"15s"`
		// BufferLimit caps the live chart buffer; 0 keeps every trade.
		BufferLimit int `yaml:"buffer_limit"`
	} `yaml:"feed"`
	Session struct {
		Backend  string `yaml:"backend" default:"file"`
		Key      string `yaml:"key" default:"isAdmin"`
		FilePath string `yaml:"file_path" default:".console/session.yaml"`
		Redis    struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"brokerconsole"`
		} `yaml:"redis"`
	} `yaml:"session"`
	LoginLimit struct {
		Capacity     float64 `yaml:"capacity" default:"5"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"0.2"`
	} `yaml:"login_limit"`
}

// Load reads and parses a YAML configuration file. Missing keys fall back to the
// struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is read first if present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BROKER_BASE_URL"); v != "" {
		c.Broker.BaseURL = v
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		c.Session.Backend = v
	}
	if v := os.Getenv("SESSION_FILE"); v != "" {
		c.Session.FilePath = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Session.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Session.Redis.Password = v
	}
	if v := os.Getenv("CONSOLE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("CONSOLE_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Broker.BaseURL == "" {
		return fmt.Errorf("broker.base_url is required")
	}
	switch c.Session.Backend {
	case "file":
		if c.Session.FilePath == "" {
			return fmt.Errorf("session.file_path is required for the file backend")
		}
	case "redis", "memory":
	default:
		return fmt.Errorf("session.backend must be 'file', 'redis' or 'memory', got '%s'", c.Session.Backend)
	}
	if c.Session.Key == "" {
		return fmt.Errorf("session.key is required")
	}
	if c.Feed.BufferLimit < 0 {
		return fmt.Errorf("feed.buffer_limit cannot be negative")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}
