package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds the terminal client settings. Values come from an
// optional YAML file and are overridden by the environment.
type ClientConfig struct {
	API       APIConfig       `yaml:"api"`
	Auth      AuthConfig      `yaml:"auth"`
	Bookmarks BookmarksConfig `yaml:"bookmarks"`
	Log       LogConfig       `yaml:"log"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig selects the token source: a fixed token, or email and password
// exchanged through /auth/signin.
type AuthConfig struct {
	Token    string `yaml:"token"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// BookmarksConfig selects where saved posts are kept. With no Redis address
// they live in memory for the session.
type BookmarksConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	User          string        `yaml:"user"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// DefaultClientConfig returns the settings used when nothing is configured.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api/v1",
			Timeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadClient reads path when it is not empty, then applies environment
// overrides and validates the result.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read client config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse client config %s: %w", path, err)
		}
	}

	cfg.API.BaseURL = getEnv("API_BASE_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getDuration("API_TIMEOUT", cfg.API.Timeout)
	cfg.Auth.Token = getEnv("API_TOKEN", cfg.Auth.Token)
	cfg.Auth.Email = getEnv("API_EMAIL", cfg.Auth.Email)
	cfg.Auth.Password = getEnv("API_PASSWORD", cfg.Auth.Password)
	cfg.Bookmarks.RedisAddr = getEnv("REDIS_ADDR", cfg.Bookmarks.RedisAddr)
	cfg.Bookmarks.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Bookmarks.RedisPassword)
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB %q is not a number", raw)
		}
		cfg.Bookmarks.RedisDB = db
	}
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	if cfg.Bookmarks.User == "" {
		cfg.Bookmarks.User = cfg.Auth.Email
	}
	if cfg.Bookmarks.User == "" {
		cfg.Bookmarks.User = "default"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the client cannot run with.
func (c *ClientConfig) Validate() error {
	var errs []error
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if c.Auth.Token == "" && (c.Auth.Email == "" || c.Auth.Password == "") {
		errs = append(errs, errors.New("auth needs a token or both email and password"))
	}
	if c.Bookmarks.TTL < 0 {
		errs = append(errs, errors.New("bookmarks.ttl must not be negative"))
	}
	return errors.Join(errs...)
}
