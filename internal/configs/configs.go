/*
Package configs is responsible for loading and parsing the application's configuration settings.

Values come from three layers, each overriding the previous: built-in defaults, an
optional YAML file (CONFIG_FILE), and environment variables. Tunables cover the
server parameters plus the presence timings: disconnect grace period, empty-session
time-to-live, and session capacity.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the presence state machine.
const (
	// DefaultGracePeriod is the window after an abrupt disconnect during which
	// an identity keeps its session membership and host status.
	DefaultGracePeriod = 15 * time.Second

	// DefaultEmptySessionTTL is how long an empty session survives before its
	// code is forgotten.
	DefaultEmptySessionTTL = 5 * time.Minute

	// DefaultSessionCapacity is the maximum number of distinct identities per session.
	DefaultSessionCapacity = 12
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string
	IdentitySecret string

	// Presence Settings
	GracePeriod     time.Duration
	EmptySessionTTL time.Duration
	SessionCapacity int

	// Connection rate limiting (per IP).
	ConnRate  float64
	ConnBurst int
}

// fileConfig mirrors AppConfig for the optional YAML configuration file.
type fileConfig struct {
	Environment            string   `yaml:"environment"`
	Port                   int      `yaml:"port"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
	IdentitySecret         string   `yaml:"identity_secret"`
	GracePeriodSeconds     int      `yaml:"grace_period_seconds"`
	EmptySessionTTLSeconds int      `yaml:"empty_session_ttl_seconds"`
	SessionCapacity        int      `yaml:"session_capacity"`
	ConnRate               float64  `yaml:"conn_rate"`
	ConnBurst              int      `yaml:"conn_burst"`
}

// LoadConfig builds the application configuration from defaults, the optional
// YAML file named by CONFIG_FILE, and environment variable overrides, then
// validates the result.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		Environment:     "development",
		Port:            8080,
		AllowedOrigins:  []string{},
		GracePeriod:     DefaultGracePeriod,
		EmptySessionTTL: DefaultEmptySessionTTL,
		SessionCapacity: DefaultSessionCapacity,
		ConnRate:        0.2,
		ConnBurst:       5,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return validate(cfg)
}

// applyFile overlays values from a YAML configuration file onto cfg.
func applyFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Environment != "" {
		cfg.Environment = fc.Environment
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.IdentitySecret != "" {
		cfg.IdentitySecret = fc.IdentitySecret
	}
	if fc.GracePeriodSeconds > 0 {
		cfg.GracePeriod = time.Duration(fc.GracePeriodSeconds) * time.Second
	}
	if fc.EmptySessionTTLSeconds > 0 {
		cfg.EmptySessionTTL = time.Duration(fc.EmptySessionTTLSeconds) * time.Second
	}
	if fc.SessionCapacity > 0 {
		cfg.SessionCapacity = fc.SessionCapacity
	}
	if fc.ConnRate > 0 {
		cfg.ConnRate = fc.ConnRate
	}
	if fc.ConnBurst > 0 {
		cfg.ConnBurst = fc.ConnBurst
	}

	return nil
}

// applyEnv overlays environment variable values onto cfg.
func applyEnv(cfg *AppConfig) error {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid PORT environment variable: %w", err)
		}
		cfg.Port = port
	}

	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		origins := strings.Split(originsStr, ",")
		cfg.AllowedOrigins = cfg.AllowedOrigins[:0]
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	if secret := os.Getenv("IDENTITY_SECRET"); secret != "" {
		cfg.IdentitySecret = secret
	}

	if graceStr := os.Getenv("GRACE_PERIOD_SECONDS"); graceStr != "" {
		seconds, err := strconv.Atoi(graceStr)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid GRACE_PERIOD_SECONDS environment variable: %q", graceStr)
		}
		cfg.GracePeriod = time.Duration(seconds) * time.Second
	}

	if ttlStr := os.Getenv("EMPTY_SESSION_TTL_SECONDS"); ttlStr != "" {
		seconds, err := strconv.Atoi(ttlStr)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid EMPTY_SESSION_TTL_SECONDS environment variable: %q", ttlStr)
		}
		cfg.EmptySessionTTL = time.Duration(seconds) * time.Second
	}

	if capStr := os.Getenv("SESSION_CAPACITY"); capStr != "" {
		capacity, err := strconv.Atoi(capStr)
		if err != nil || capacity <= 0 {
			return fmt.Errorf("invalid SESSION_CAPACITY environment variable: %q", capStr)
		}
		cfg.SessionCapacity = capacity
	}

	return nil
}

// validate enforces cross-field constraints after all layers are applied.
func validate(cfg *AppConfig) (*AppConfig, error) {
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	if cfg.IdentitySecret == "" {
		if cfg.Environment == "development" {
			cfg.IdentitySecret = "your_default_insecure_secret_key_change_me"
		} else {
			return nil, fmt.Errorf("IDENTITY_SECRET is required in %s environment for security", cfg.Environment)
		}
	}

	return cfg, nil
}
