// Package config holds all configuration for the adlens client.
//
// Layering: built-in defaults, then an optional YAML file pointed at by
// ADLENS_CONFIG, then ADLENS_* environment overrides. The same Config
// drives both the multi-category and the legacy single-endpoint app
// variants — core logic never branches on variant, only on this data.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/adlens/adlens/internal/category"
)

const (
	configPathEnv = "ADLENS_CONFIG"

	// DefaultBaseURL matches the local development stubserver address.
	DefaultBaseURL = "http://localhost:8090"

	// DefaultHistoryCap bounds the in-memory analysis history.
	DefaultHistoryCap = 10
)

// Config holds all settings for the client.
type Config struct {
	// BaseURL is the root address of the analysis backend(s).
	BaseURL string `yaml:"baseUrl"`

	// Categories is the set of report categories this deployment serves.
	Categories []category.Category `yaml:"categories"`

	// RequiresAuth gates dispatch on a stored bearer credential.
	RequiresAuth bool `yaml:"requiresAuth"`

	// SingleEndpoint selects the legacy wire variant that exposes
	// /api/analyze and /api/health without a category path segment.
	SingleEndpoint bool `yaml:"singleEndpoint"`

	// DataDir is where the durable credential slot lives.
	DataDir string `yaml:"dataDir"`

	HistoryCap     int           `yaml:"historyCap"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	ProbeTimeout   time.Duration `yaml:"probeTimeout"`

	// MonitorInterval enables the background health monitor when > 0.
	MonitorInterval time.Duration `yaml:"monitorInterval"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Load reads configuration from the optional YAML file and environment
// variables with sensible defaults.
func Load() *Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot read config file, using defaults")
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot parse config file, using defaults")
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Categories) == 0 {
		cfg.Categories = category.All()
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = DefaultHistoryCap
	}

	return cfg
}

func defaultConfig() *Config {
	dataDir := ""
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".adlens")
	}
	return &Config{
		BaseURL:        DefaultBaseURL,
		DataDir:        dataDir,
		Categories:     category.All(),
		RequiresAuth:   true,
		HistoryCap:     DefaultHistoryCap,
		RequestTimeout: 60 * time.Second,
		ProbeTimeout:   10 * time.Second,
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "adlens",
		},
	}
}

func (c *Config) applyEnvOverrides() {
	c.BaseURL = envStr("ADLENS_API_URL", c.BaseURL)
	c.DataDir = envStr("ADLENS_DATA_DIR", c.DataDir)
	c.RequiresAuth = envBool("ADLENS_REQUIRE_AUTH", c.RequiresAuth)
	c.SingleEndpoint = envBool("ADLENS_SINGLE_ENDPOINT", c.SingleEndpoint)
	c.HistoryCap = envInt("ADLENS_HISTORY_CAP", c.HistoryCap)
	c.RequestTimeout = envDuration("ADLENS_REQUEST_TIMEOUT", c.RequestTimeout)
	c.ProbeTimeout = envDuration("ADLENS_PROBE_TIMEOUT", c.ProbeTimeout)
	c.MonitorInterval = envDuration("ADLENS_MONITOR_INTERVAL", c.MonitorInterval)

	c.Telemetry.Enabled = envBool("ADLENS_OTEL_ENABLED", c.Telemetry.Enabled)
	c.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", c.Telemetry.ServiceName)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
