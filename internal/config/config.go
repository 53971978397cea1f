package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "conveyor.db"
	defaultWorkers    = 4
	defaultPoolName   = "conveyor"

	envConfigFile = "CONVEYOR_CONFIG_FILE"
	envListenAddr = "CONVEYOR_LISTEN_ADDR"
	envDBPath     = "CONVEYOR_DB_PATH"
	envLogLevel   = "CONVEYOR_LOG_LEVEL"
	envWorkers    = "CONVEYOR_WORKERS"
	envPoolName   = "CONVEYOR_POOL_NAME"
	envSealKey    = "CONVEYOR_SEAL_KEY"
)

// Config holds application configuration. Values come from an optional YAML
// file (CONVEYOR_CONFIG_FILE), overridden by environment variables.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level
	Workers    int
	PoolName   string
	SealKey    string
}

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	LogLevel   string `yaml:"log_level"`
	Workers    int    `yaml:"workers"`
	PoolName   string `yaml:"pool_name"`
	SealKey    string `yaml:"seal_key"`
}

// Load reads configuration from the optional YAML file and the environment,
// with sensible defaults. Environment variables win over file values.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
		Workers:    defaultWorkers,
		PoolName:   defaultPoolName,
	}

	if path := os.Getenv(envConfigFile); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", envWorkers, v)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(envPoolName); v != "" {
		cfg.PoolName = v
	}
	if v := os.Getenv(envSealKey); v != "" {
		cfg.SealKey = v
	}

	return cfg, nil
}

// applyFile overlays values from the YAML file at path onto cfg.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel)
	}
	if fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	if fc.PoolName != "" {
		cfg.PoolName = fc.PoolName
	}
	if fc.SealKey != "" {
		cfg.SealKey = fc.SealKey
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
