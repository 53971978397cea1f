package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		envConfigFile, envListenAddr, envDBPath, envLogLevel,
		envWorkers, envPoolName, envSealKey,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.Workers != defaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Workers, defaultWorkers)
	}
	if cfg.PoolName != defaultPoolName {
		t.Errorf("PoolName = %q, want %q", cfg.PoolName, defaultPoolName)
	}
	if cfg.SealKey != "" {
		t.Errorf("SealKey = %q, want empty", cfg.SealKey)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/test.db")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envWorkers, "8")
	t.Setenv(envPoolName, "dispatch")
	t.Setenv(envSealKey, "abcd")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
	if cfg.PoolName != "dispatch" {
		t.Errorf("PoolName = %q, want %q", cfg.PoolName, "dispatch")
	}
	if cfg.SealKey != "abcd" {
		t.Errorf("SealKey = %q, want %q", cfg.SealKey, "abcd")
	}
}

func TestLoadInvalidWorkers(t *testing.T) {
	tests := []string{"zero", "0", "-3", "1.5"}

	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(envWorkers, v)

			if _, err := Load(); err == nil {
				t.Errorf("Load with workers=%q succeeded, want error", v)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "conveyor.yaml")
	content := `
listen_addr: ":7070"
db_path: "/tmp/file.db"
log_level: warn
workers: 6
pool_name: filepool
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(envConfigFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":7070")
	}
	if cfg.DBPath != "/tmp/file.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/file.db")
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelWarn)
	}
	if cfg.Workers != 6 {
		t.Errorf("Workers = %d, want 6", cfg.Workers)
	}
	if cfg.PoolName != "filepool" {
		t.Errorf("PoolName = %q, want %q", cfg.PoolName, "filepool")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "conveyor.yaml")
	if err := os.WriteFile(path, []byte("workers: 6\nlisten_addr: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(envConfigFile, path)
	t.Setenv(envWorkers, "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Workers != 12 {
		t.Errorf("Workers = %d, want env override 12", cfg.Workers)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want file value %q", cfg.ListenAddr, ":7070")
	}
}

func TestLoadBadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("workers: [not an int\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(envConfigFile, path)

	if _, err := Load(); err == nil {
		t.Error("Load with malformed file succeeded, want error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(envConfigFile, "/nonexistent/conveyor.yaml")

	if _, err := Load(); err == nil {
		t.Error("Load with missing file succeeded, want error")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.input); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
