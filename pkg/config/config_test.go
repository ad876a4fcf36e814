package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "info"

slot:
  type: "filesystem"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Backup.Interval != 24*time.Hour {
		t.Errorf("Expected default backup interval 24h, got %v", cfg.Backup.Interval)
	}
	if cfg.Object.Type != "memory" {
		t.Errorf("Expected default object type 'memory', got %q", cfg.Object.Type)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: DEBUG
  format: json
  output: stderr

server:
  shutdown_timeout: 5s

backup:
  interval: 1h
  cycle_timeout: 2m
  slot_id: team.data
  display_name: team.data
  publish_interval: 30s
  publish_burst: 2

slot:
  type: badger
  badger:
    db_path: /var/lib/dittodrive

object:
  type: s3
  s3:
    bucket: backups
    region: eu-west-1
    endpoint: http://localhost:9000
    max_retries: 3

metrics:
  enabled: true
  port: 9191
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown_timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Backup.Interval != time.Hour || cfg.Backup.CycleTimeout != 2*time.Minute {
		t.Errorf("Unexpected backup timing: %+v", cfg.Backup)
	}
	if cfg.Backup.SlotID != "team.data" || cfg.Backup.DisplayName != "team.data" {
		t.Errorf("Unexpected backup identity: %+v", cfg.Backup)
	}
	if cfg.Backup.PublishInterval != 30*time.Second || cfg.Backup.PublishBurst != 2 {
		t.Errorf("Unexpected publish limits: %+v", cfg.Backup)
	}
	if cfg.Slot.Type != "badger" || cfg.Slot.Badger["db_path"] != "/var/lib/dittodrive" {
		t.Errorf("Unexpected slot config: %+v", cfg.Slot)
	}

	s3Cfg, err := DecodeS3ObjectConfig(cfg.Object.S3)
	if err != nil {
		t.Fatalf("Failed to decode s3 section: %v", err)
	}
	if s3Cfg.Bucket != "backups" || s3Cfg.MaxRetries != 3 || s3Cfg.KeyPrefix != "dittodrive/" {
		t.Errorf("Unexpected s3 config: %+v", s3Cfg)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9191 {
		t.Errorf("Unexpected metrics config: %+v", cfg.Metrics)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Slot.Type != "filesystem" {
		t.Errorf("Expected default slot type 'filesystem', got %q", cfg.Slot.Type)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
slot:
  type: postgres
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown slot type")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[slot]
type = "filesystem"

[slot.filesystem]
path = "/tmp/drive.data"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Slot.Filesystem["path"] != "/tmp/drive.data" {
		t.Errorf("Expected slot path '/tmp/drive.data', got %v", cfg.Slot.Filesystem["path"])
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTODRIVE_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTODRIVE_BACKUP_INTERVAL", "2h")
	t.Setenv("DITTODRIVE_METRICS_PORT", "9999")

	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Backup.Interval != 2*time.Hour {
		t.Errorf("Expected interval 2h from env var, got %v", cfg.Backup.Interval)
	}
	if cfg.Metrics.Port != 9999 {
		t.Errorf("Expected port 9999 from env var, got %d", cfg.Metrics.Port)
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	if dir := GetConfigDir(); dir != filepath.Join("/tmp/xdg", "dittodrive") {
		t.Errorf("Expected XDG config dir, got %q", dir)
	}
	if path := GetDefaultConfigPath(); filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if ConfigExists() {
		t.Fatal("Expected no config in a fresh directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !ConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}
