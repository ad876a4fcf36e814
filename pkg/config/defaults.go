package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/backup"
	"github.com/marmos91/dittodrive/pkg/metrics"
	fsslot "github.com/marmos91/dittodrive/pkg/store/slot/fs"
)

// DefaultBadgerPath is the Badger slot directory used when none is set.
const DefaultBadgerPath = "./cache/badger"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
// Backend-specific defaults are filled into every backend map so a generated
// config file documents them all.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyBackupDefaults(&cfg.Backup)
	applySlotDefaults(&cfg.Slot)
	applyObjectDefaults(&cfg.Object)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyBackupDefaults(cfg *BackupConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = backup.DefaultInterval
	}
	if cfg.CycleTimeout == 0 {
		cfg.CycleTimeout = min(backup.DefaultCycleTimeout, cfg.Interval)
	}
	if cfg.SlotID == "" {
		cfg.SlotID = backup.DefaultSlot
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = backup.DefaultDisplayName
	}
	if cfg.PublishBurst == 0 {
		cfg.PublishBurst = 1
	}
}

func applySlotDefaults(cfg *SlotConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = fsslot.DefaultPath
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = DefaultBadgerPath
	}
}

func applyObjectDefaults(cfg *ObjectConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if _, ok := cfg.S3["key_prefix"]; !ok {
		cfg.S3["key_prefix"] = "dittodrive/"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = metrics.DefaultPort
	}
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
