// Package config loads service configuration from an optional YAML file and
// SKYROT_* environment variables. Environment values win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/star/skyrot/internal/transform"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr   string           `yaml:"http_addr"`
	LogLevel   string           `yaml:"log_level"`
	TrustProxy bool             `yaml:"trust_proxy"`
	Auth       AuthConfig       `yaml:"auth"`
	Batch      BatchConfig      `yaml:"batch"`
	Limits     LimitsConfig     `yaml:"limits"`
	Transforms []transform.Spec `yaml:"transforms"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// BatchConfig sizes the evaluation worker pool.
type BatchConfig struct {
	Workers   int `yaml:"workers"`    // default: runtime.NumCPU()
	ChunkSize int `yaml:"chunk_size"` // points per chunk (default: 4096)
}

// LimitsConfig bounds the work a single request may ask for.
type LimitsConfig struct {
	MaxPoints          int `yaml:"max_points"`            // default: 1,000,000
	MaxConcurrentPerIP int `yaml:"max_concurrent_per_ip"` // default: 10
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		LogLevel: "info",
		Batch: BatchConfig{
			Workers:   runtime.NumCPU(),
			ChunkSize: 4096,
		},
		Limits: LimitsConfig{
			MaxPoints:          1_000_000,
			MaxConcurrentPerIP: 10,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := decodeYAML(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		logger.Info("config file loaded", "path", path, "transforms", len(cfg.Transforms))
	}

	if err := applyEnv(&cfg, logger); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logger.Info("config",
		"http_addr", cfg.HTTPAddr,
		"log_level", cfg.LogLevel,
		"auth_enabled", cfg.Auth.Enabled,
		"trust_proxy", cfg.TrustProxy,
		"batch_workers", cfg.Batch.Workers,
		"batch_chunk_size", cfg.Batch.ChunkSize,
		"max_points", cfg.Limits.MaxPoints,
		"max_concurrent_per_ip", cfg.Limits.MaxConcurrentPerIP,
	)
	return cfg, nil
}

func decodeYAML(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Auth.Enabled && c.Auth.Token == "" {
		return errors.New("auth token is required when auth is enabled")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Transforms))
	for i, s := range c.Transforms {
		if s.Name == "" {
			return fmt.Errorf("transforms[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("transforms[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func applyEnv(cfg *Config, logger *slog.Logger) error {
	if v := os.Getenv("SKYROT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("SKYROT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv("SKYROT_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("SKYROT_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Auth.Enabled = enabled
	}
	if v := os.Getenv("SKYROT_AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}

	if v := os.Getenv("SKYROT_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYROT_TRUST_PROXY value, keeping current", "value", v, "current", cfg.TrustProxy)
		} else {
			cfg.TrustProxy = trust
		}
	}

	positiveInt(logger, "SKYROT_BATCH_WORKERS", &cfg.Batch.Workers)
	positiveInt(logger, "SKYROT_BATCH_CHUNK_SIZE", &cfg.Batch.ChunkSize)
	positiveInt(logger, "SKYROT_MAX_POINTS", &cfg.Limits.MaxPoints)
	positiveInt(logger, "SKYROT_MAX_CONCURRENT_PER_IP", &cfg.Limits.MaxConcurrentPerIP)
	return nil
}

// positiveInt overrides *dst from the named variable when it holds an integer
// of at least 1. Anything else is logged and ignored.
func positiveInt(logger *slog.Logger, name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn("invalid "+name+" value, using default", "value", v, "default", *dst)
		return
	}
	*dst = n
}
