package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "supersecretjwtkey"

// Config holds the API server settings.
type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresURL             string
	MongoURI                string
	MongoDatabase           string
	JWTSecret               string
	TokenTTL                time.Duration
	NatsURL                 string
	// AuthMode selects the protected route guard: "jwt" or "firebase".
	AuthMode string
}

// Load reads the server settings from the environment, after loading a .env
// file when one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using the process environment")
	}
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresURL:             getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialmedia"),
		JWTSecret:               getEnv("JWT_SECRET", defaultJWTSecret),
		TokenTTL:                getDuration("JWT_TTL", 72*time.Hour),
		NatsURL:                 getEnv("NATS_URL", ""),
		AuthMode:                getEnv("AUTH_MODE", "jwt"),
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_CONN_STR environment variable not set"))
	}
	if c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI environment variable not set"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	switch c.AuthMode {
	case "jwt":
	case "firebase":
		if c.FirebaseCredentialsPath == "" {
			errs = append(errs, errors.New("AUTH_MODE=firebase needs FIREBASE_CREDENTIALS_PATH"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_MODE %q must be jwt or firebase", c.AuthMode))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set outside development"))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT %q is not a number", c.Port))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs outside a developer machine.
func (c *Config) IsProduction() bool {
	return c.Env != "development" && c.Env != "local" && c.Env != "test"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("ignoring invalid duration", "key", key, "value", raw)
		return defaultValue
	}
	return d
}
