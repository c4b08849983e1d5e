// Package config loads the application configuration with layered
// sources: built-in defaults, an optional YAML file, then environment
// variables.
package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/simulate"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"harrier.yaml",
	"harrier.yml",
	"/etc/harrier/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "HARRIER_CONFIG"

// Config holds the complete Harrier configuration.
type Config struct {
	Server     api.ServerConfig       `koanf:"server"`
	Logging    LoggingConfig          `koanf:"logging"`
	Detection  domain.DetectionConfig `koanf:"detection"`
	Simulation simulate.Options       `koanf:"simulation"`
	Report     ReportConfig           `koanf:"report"`

	// MaxRuns bounds the in-memory run store.
	MaxRuns int `koanf:"max_runs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// ReportConfig holds report output settings for one-shot runs.
type ReportConfig struct {
	OutputDir      string `koanf:"output_dir"`
	TopN           int    `koanf:"top_n"`
	SuspiciousOnly bool   `koanf:"suspicious_only"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: api.ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Detection:  domain.DefaultDetectionConfig(),
		Simulation: simulate.DefaultOptions(),
		Report: ReportConfig{
			OutputDir:      ".",
			TopN:           10,
			SuspiciousOnly: true,
		},
		MaxRuns: 100,
	}
}

// Load builds the configuration: defaults, then an optional YAML file,
// then HARRIER_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Detection.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings translates flat environment variable names to koanf paths.
// Unmapped variables are dropped so ambient environment noise cannot
// leak into the configuration.
var envMappings = map[string]string{
	"HARRIER_HOST":          "server.host",
	"HARRIER_PORT":          "server.port",
	"HARRIER_READ_TIMEOUT":  "server.read_timeout",
	"HARRIER_WRITE_TIMEOUT": "server.write_timeout",

	"HARRIER_LOG_LEVEL":  "logging.level",
	"HARRIER_LOG_FORMAT": "logging.format",

	"HARRIER_SMALL_TXN_THRESHOLD":   "detection.small_txn_threshold",
	"HARRIER_STRUCTURING_MIN_COUNT": "detection.structuring_min_count",
	"HARRIER_SPIKE_MULTIPLIER":      "detection.spike_multiplier",
	"HARRIER_CONTAMINATION":         "detection.contamination",
	"HARRIER_FOREST_SIZE":           "detection.forest_size",
	"HARRIER_SUBSAMPLE_SIZE":        "detection.subsample_size",
	"HARRIER_RANDOM_SEED":           "detection.random_seed",
	"HARRIER_WORKERS":               "detection.workers",

	"HARRIER_SIM_BASE_COUNT":             "simulation.base_count",
	"HARRIER_SIM_STRUCTURING_SENDERS":    "simulation.structuring_senders",
	"HARRIER_SIM_STRUCTURING_PER_SENDER": "simulation.structuring_per_sender",
	"HARRIER_SIM_SEED":                   "simulation.seed",

	"HARRIER_REPORT_DIR":             "report.output_dir",
	"HARRIER_REPORT_TOP_N":           "report.top_n",
	"HARRIER_REPORT_SUSPICIOUS_ONLY": "report.suspicious_only",

	"HARRIER_MAX_RUNS": "max_runs",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
