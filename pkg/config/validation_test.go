package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "LogLevel",
			mutate:  func(cfg *Config) { cfg.Logging.Level = "INVALID" },
			wantErr: "oneof",
		},
		{
			name:    "LogFormat",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "oneof",
		},
		{
			name:    "ShutdownTimeout",
			mutate:  func(cfg *Config) { cfg.Server.ShutdownTimeout = -time.Second },
			wantErr: "ShutdownTimeout",
		},
		{
			name:    "BackupInterval",
			mutate:  func(cfg *Config) { cfg.Backup.Interval = 0 },
			wantErr: "Interval",
		},
		{
			name:    "EmptySlotID",
			mutate:  func(cfg *Config) { cfg.Backup.SlotID = "" },
			wantErr: "SlotID",
		},
		{
			name:    "PublishBurst",
			mutate:  func(cfg *Config) { cfg.Backup.PublishBurst = 0 },
			wantErr: "PublishBurst",
		},
		{
			name:    "CycleLongerThanInterval",
			mutate:  func(cfg *Config) { cfg.Backup.CycleTimeout = 48 * time.Hour },
			wantErr: "cycle_timeout",
		},
		{
			name:    "SlotType",
			mutate:  func(cfg *Config) { cfg.Slot.Type = "postgres" },
			wantErr: "oneof",
		},
		{
			name:    "ObjectType",
			mutate:  func(cfg *Config) { cfg.Object.Type = "gcs" },
			wantErr: "oneof",
		},
		{
			name:    "S3WithoutBucket",
			mutate:  func(cfg *Config) { cfg.Object.Type = "s3"; cfg.Object.S3["region"] = "us-east-1" },
			wantErr: "bucket is required",
		},
		{
			name:    "S3WithoutRegion",
			mutate:  func(cfg *Config) { cfg.Object.Type = "s3"; cfg.Object.S3["bucket"] = "b" },
			wantErr: "region is required",
		},
		{
			name:    "MetricsPortRange",
			mutate:  func(cfg *Config) { cfg.Metrics.Port = 70000 },
			wantErr: "Port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_S3Complete(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Object.Type = "s3"
	cfg.Object.S3["bucket"] = "backups"
	cfg.Object.S3["region"] = "eu-central-1"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected complete s3 config to pass, got: %v", err)
	}
}

func TestValidate_LowercaseLevelAccepted(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected lowercase level to pass, got: %v", err)
	}
}
