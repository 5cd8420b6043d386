package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDatabaseDSN = "file:sublease.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	DefaultAppURL      = "http://127.0.0.1:8080"
	DefaultMailFrom    = "no-reply@example.com"
)

// Config captures environment driven configuration values for the sublease service.
type Config struct {
	HTTPPort      int
	DatabaseDSN   string
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool
	LogLevel      string

	EmailSuffix              string
	RequireEmailVerification bool
	VerificationTTL          time.Duration
	AppURL                   string

	ResendAPIKey string
	MailFrom     string

	GoogleMapsKey     string
	GeocodeCacheSize  int
	GeocodeCacheTTL   time.Duration
	RedisAddr         string
	RedisPassword     string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// Load reads an optional .env file from the working directory and then parses the process
// environment. Variables already set in the environment take precedence over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the current process environment, applying defaults for optional fields.
// Missing required values and malformed values are reported together.
func FromEnv() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		DatabaseDSN:       DefaultDatabaseDSN,
		SessionTTL:        24 * time.Hour,
		LogLevel:          "info",
		EmailSuffix:       ".edu",
		VerificationTTL:   24 * time.Hour,
		AppURL:            DefaultAppURL,
		MailFrom:          DefaultMailFrom,
		GeocodeCacheSize:  512,
		GeocodeCacheTTL:   24 * time.Hour,
		ShutdownTimeout:   10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("SUBLEASE_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SUBLEASE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := env("SUBLEASE_DATABASE_DSN"); dsn != "" {
		cfg.DatabaseDSN = dsn
	}

	if secret := env("SUBLEASE_SESSION_SECRET"); secret == "" {
		missing = append(missing, "SUBLEASE_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SUBLEASE_SESSION_TTL", &cfg.SessionTTL},
		{"SUBLEASE_VERIFICATION_TTL", &cfg.VerificationTTL},
		{"SUBLEASE_GEOCODE_CACHE_TTL", &cfg.GeocodeCacheTTL},
		{"SUBLEASE_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		value := env(d.key)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, d.key)
			continue
		}
		*d.dst = parsed
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{"SUBLEASE_REQUIRE_EMAIL_VERIFICATION", &cfg.RequireEmailVerification},
		{"SUBLEASE_SECURE_COOKIES", &cfg.SecureCookies},
	}
	for _, f := range flags {
		value := env(f.key)
		if value == "" {
			continue
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, f.key)
			continue
		}
		*f.dst = parsed
	}

	// An explicitly empty suffix accepts every email domain.
	if suffix, ok := os.LookupEnv("SUBLEASE_EMAIL_SUFFIX"); ok {
		cfg.EmailSuffix = strings.ToLower(strings.TrimSpace(suffix))
	}

	if appURL := env("SUBLEASE_APP_URL"); appURL != "" {
		cfg.AppURL = strings.TrimRight(appURL, "/")
	}
	if from := env("SUBLEASE_MAIL_FROM"); from != "" {
		cfg.MailFrom = from
	}
	if level := env("SUBLEASE_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if sizeValue := env("SUBLEASE_GEOCODE_CACHE_SIZE"); sizeValue != "" {
		size, err := strconv.Atoi(sizeValue)
		if err != nil || size <= 0 {
			invalid = append(invalid, "SUBLEASE_GEOCODE_CACHE_SIZE")
		} else {
			cfg.GeocodeCacheSize = size
		}
	}

	cfg.ResendAPIKey = env("SUBLEASE_RESEND_API_KEY")
	cfg.GoogleMapsKey = env("SUBLEASE_GOOGLE_MAPS_KEY")
	cfg.RedisAddr = env("SUBLEASE_REDIS_ADDR")
	cfg.RedisPassword = env("SUBLEASE_REDIS_PASSWORD")

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

// UsesPostgres reports whether the DSN selects the pgx driver.
func (c Config) UsesPostgres() bool {
	dsn := strings.ToLower(c.DatabaseDSN)
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
