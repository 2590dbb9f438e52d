// Package config loads the bookshelf settings from the environment.
//
// An optional .env file is read first; variables already present in the
// environment take precedence over it.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends accepted by BOOKSHELF_STORAGE.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// DefaultEnvFile is loaded by Load when no files are given.
const DefaultEnvFile = ".env"

// Config holds every setting of the serve command.
type Config struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleDiscoveryURL string `env:"GOOGLE_DISCOVERY_URL" envDefault:"https://accounts.google.com/.well-known/openid-configuration"`

	// SecretKey signs the session cookie. When empty a random key is
	// generated and sessions do not survive a restart.
	SecretKey string `env:"SECRET_KEY"`

	DBPath   string `env:"BOOKSHELF_DB_PATH" envDefault:"database.db"`
	Storage  string `env:"BOOKSHELF_STORAGE" envDefault:"sqlite"`
	HTTPAddr string `env:"BOOKSHELF_HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the externally visible origin used to build the OAuth
	// callback URL. When empty it is derived from each request.
	BaseURL string `env:"BOOKSHELF_BASE_URL"`

	// RequireLogin guards create, edit and delete behind a signed-in session.
	RequireLogin  bool          `env:"BOOKSHELF_REQUIRE_LOGIN" envDefault:"true"`
	SessionMaxAge time.Duration `env:"BOOKSHELF_SESSION_MAX_AGE" envDefault:"720h"`

	LogLevel  string `env:"BOOKSHELF_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"BOOKSHELF_LOG_FORMAT" envDefault:"text"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsAddr    string `env:"METRICS_ADDR" envDefault:":9090"`

	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	// GeneratedSecret reports that SecretKey was not configured.
	GeneratedSecret bool `env:"-"`
}

// Load reads the given env files (default: .env) and parses the environment.
// Missing files are skipped.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse reads the configuration from the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SecretKey == "" {
		key, err := RandomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.SecretKey = key
		cfg.GeneratedSecret = true
	}
	return cfg, nil
}

// RandomSecret returns 32 random bytes, hex encoded.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Validate checks settings that env.Parse cannot.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage {
	case StorageSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("BOOKSHELF_DB_PATH is required for sqlite storage"))
		}
	case StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid storage %q, must be one of: sqlite, memory", c.Storage))
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together"))
	}

	if c.BaseURL != "" {
		if err := ValidateBaseURL(c.BaseURL); err != nil {
			errs = append(errs, err)
		}
	}

	if c.SessionMaxAge < 0 {
		errs = append(errs, errors.New("BOOKSHELF_SESSION_MAX_AGE must not be negative"))
	}

	return errors.Join(errs...)
}

// ValidateBaseURL requires https, except for loopback hosts where plain http
// is accepted for local development.
func ValidateBaseURL(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("base URL must use https outside localhost (got: %s)", baseURL)
		}
		return nil
	default:
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}
}

// OAuthConfigured reports whether Google credentials are present.
func (c *Config) OAuthConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
