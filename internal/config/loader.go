// Package config loads service configuration from defaults, an optional TOML
// file and SMARTSPACE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigPathEnv names the variable pointing at the optional TOML file.
const ConfigPathEnv = "SMARTSPACE_CONFIG"

// Config captures the configuration values for the booking service and the
// calendar front end.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionSecret string
	SessionTTL    time.Duration

	BackendBaseURL string
	BackendTimeout time.Duration

	Timezone      string
	Location      *time.Location
	PixelsPerHour float64
	MinCardHeight float64
	ColumnInset   float64
	SplitOverlaps bool

	DashboardPollInterval time.Duration

	LogFormat string
	LogLevel  string
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPPort:              8080,
		SQLiteDSN:             "file:smartspace.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		SessionTTL:            24 * time.Hour,
		BackendBaseURL:        "http://localhost:8080",
		BackendTimeout:        10 * time.Second,
		Timezone:              "Local",
		Location:              time.Local,
		PixelsPerHour:         80,
		MinCardHeight:         64,
		ColumnInset:           4,
		DashboardPollInterval: 60 * time.Second,
		LogFormat:             "json",
		LogLevel:              "info",
	}
}

// Load reads the file named by SMARTSPACE_CONFIG, if any, and the environment.
func Load() (Config, error) {
	return LoadFrom(strings.TrimSpace(os.Getenv(ConfigPathEnv)))
}

// LoadFrom starts with defaults, overlays the TOML file at path when it
// exists, then applies environment overrides and validates the result.
// Every missing or invalid key is reported in a single error.
func LoadFrom(path string) (Config, error) {
	values, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	for _, f := range fields {
		if v, ok := os.LookupEnv(f.env); ok && strings.TrimSpace(v) != "" {
			values[f.key] = strings.TrimSpace(v)
		}
	}

	cfg := Default()
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	for _, f := range fields {
		raw, ok := values[f.key]
		if !ok || raw == "" {
			if f.required {
				missing = append(missing, f.env)
			}
			continue
		}
		if err := f.apply(&cfg, raw); err != nil {
			invalid = append(invalid, f.env)
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func readFile(path string) (map[string]string, error) {
	values := make(map[string]string)
	if path == "" {
		return values, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	sections := make([]string, 0, len(doc))
	for name := range doc {
		sections = append(sections, name)
	}
	sort.Strings(sections)
	for _, name := range sections {
		table, ok := doc[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parsing config file: %q must be a table", name)
		}
		for key, value := range table {
			values[name+"."+key] = strings.TrimSpace(fmt.Sprint(value))
		}
	}
	return values, nil
}

type field struct {
	key      string
	env      string
	required bool
	apply    func(cfg *Config, raw string) error
}

var errInvalidValue = errors.New("invalid value")

var fields = []field{
	{key: "http.port", env: "SMARTSPACE_HTTP_PORT", apply: func(cfg *Config, raw string) error {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return errInvalidValue
		}
		cfg.HTTPPort = port
		return nil
	}},
	{key: "storage.sqlite_dsn", env: "SMARTSPACE_SQLITE_DSN", apply: func(cfg *Config, raw string) error {
		cfg.SQLiteDSN = raw
		return nil
	}},
	{key: "auth.session_secret", env: "SMARTSPACE_SESSION_SECRET", required: true, apply: func(cfg *Config, raw string) error {
		cfg.SessionSecret = raw
		return nil
	}},
	{key: "auth.session_ttl", env: "SMARTSPACE_SESSION_TTL", apply: func(cfg *Config, raw string) error {
		return positiveDuration(raw, &cfg.SessionTTL)
	}},
	{key: "backend.base_url", env: "SMARTSPACE_BACKEND_URL", apply: func(cfg *Config, raw string) error {
		if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
			return errInvalidValue
		}
		cfg.BackendBaseURL = strings.TrimRight(raw, "/")
		return nil
	}},
	{key: "backend.timeout", env: "SMARTSPACE_BACKEND_TIMEOUT", apply: func(cfg *Config, raw string) error {
		return positiveDuration(raw, &cfg.BackendTimeout)
	}},
	{key: "calendar.timezone", env: "SMARTSPACE_TIMEZONE", apply: func(cfg *Config, raw string) error {
		loc, err := time.LoadLocation(raw)
		if err != nil {
			return errInvalidValue
		}
		cfg.Timezone = raw
		cfg.Location = loc
		return nil
	}},
	{key: "calendar.pixels_per_hour", env: "SMARTSPACE_PIXELS_PER_HOUR", apply: func(cfg *Config, raw string) error {
		return positiveFloat(raw, &cfg.PixelsPerHour)
	}},
	{key: "calendar.min_card_height", env: "SMARTSPACE_MIN_CARD_HEIGHT", apply: func(cfg *Config, raw string) error {
		return nonNegativeFloat(raw, &cfg.MinCardHeight)
	}},
	{key: "calendar.column_inset", env: "SMARTSPACE_COLUMN_INSET", apply: func(cfg *Config, raw string) error {
		return nonNegativeFloat(raw, &cfg.ColumnInset)
	}},
	{key: "calendar.split_overlaps", env: "SMARTSPACE_SPLIT_OVERLAPS", apply: func(cfg *Config, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errInvalidValue
		}
		cfg.SplitOverlaps = v
		return nil
	}},
	{key: "dashboard.poll_interval", env: "SMARTSPACE_DASHBOARD_POLL_INTERVAL", apply: func(cfg *Config, raw string) error {
		return positiveDuration(raw, &cfg.DashboardPollInterval)
	}},
	{key: "log.format", env: "SMARTSPACE_LOG_FORMAT", apply: func(cfg *Config, raw string) error {
		switch v := strings.ToLower(raw); v {
		case "json", "text":
			cfg.LogFormat = v
			return nil
		}
		return errInvalidValue
	}},
	{key: "log.level", env: "SMARTSPACE_LOG_LEVEL", apply: func(cfg *Config, raw string) error {
		switch v := strings.ToLower(raw); v {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = v
			return nil
		}
		return errInvalidValue
	}},
}

func positiveDuration(raw string, dst *time.Duration) error {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return errInvalidValue
	}
	*dst = d
	return nil
}

func positiveFloat(raw string, dst *float64) error {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return errInvalidValue
	}
	*dst = v
	return nil
}

func nonNegativeFloat(raw string, dst *float64) error {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return errInvalidValue
	}
	*dst = v
	return nil
}
