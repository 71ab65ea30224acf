// Package config loads the front-end server settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the front-end server settings
type Config struct {
	// ServerURL is the base URL of the Paredão API
	ServerURL string
	// SiteKey is the public bot-check key shown to the browser
	SiteKey string
	// SecretKey verifies bot-check tokens server-side; never sent to the browser
	SecretKey string
	Port      int
	// PublicURL is the address voters reach this server at, used for the QR code.
	// Empty means it is derived from the LAN address at startup.
	PublicURL     string
	LogLevel      string
	LogFormat     string
	CORSOrigins   []string
	DefaultLocale string
	SecureCookies bool
}

// Default returns the settings used when a variable is unset
func Default() Config {
	return Config{
		Port:          8080,
		LogLevel:      "info",
		LogFormat:     "text",
		DefaultLocale: "pt-BR",
	}
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load reads .env (when present) and the process environment
func Load() (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("config: failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config from getenv
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	cfg.ServerURL = strings.TrimSpace(getenv("SERVER_URL"))
	cfg.SiteKey = getenv("VERIFY_SITE_KEY")
	cfg.SecretKey = getenv("VERIFY_SECRET_KEY")
	cfg.PublicURL = strings.TrimRight(strings.TrimSpace(getenv("PUBLIC_URL")), "/")

	if raw := getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", raw, err)
		}
		cfg.Port = port
	}
	if raw := getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := getenv("DEFAULT_LOCALE"); raw != "" {
		cfg.DefaultLocale = raw
	}
	if raw := getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	if raw := getenv("SECURE_COOKIES"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SECURE_COOKIES %q: %w", raw, err)
		}
		cfg.SecureCookies = secure
	} else {
		cfg.SecureCookies = strings.HasPrefix(cfg.PublicURL, "https://")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("config: SERVER_URL is required")
	}
	if err := absoluteURL("SERVER_URL", c.ServerURL); err != nil {
		return err
	}
	if c.PublicURL != "" {
		if err := absoluteURL("PUBLIC_URL", c.PublicURL); err != nil {
			return err
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

func absoluteURL(name, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("config: invalid %s (%q): %w", name, raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("config: invalid %s (%q): scheme or host missing", name, raw)
	}
	return nil
}

// Addr is the listen address for Port
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
