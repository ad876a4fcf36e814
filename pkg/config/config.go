package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete DittoDrive configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTODRIVE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Backend Configuration Pattern:
// Each backend defines its own configuration type. The slot and object
// sections carry one map per backend type and only the map matching the
// selected type is decoded (see CreateSlot and CreateObjectStore).
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains process-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Backup controls the snapshot scheduler
	Backup BackupConfig `mapstructure:"backup" yaml:"backup"`

	// Slot selects where every save is written locally
	Slot SlotConfig `mapstructure:"slot" yaml:"slot"`

	// Object selects the remote object channel snapshots are published to
	Object ObjectConfig `mapstructure:"object" yaml:"object"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains process-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
}

// BackupConfig controls the snapshot scheduler.
type BackupConfig struct {
	// Interval is how often the scheduler checks for unpublished saves
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"required,gt=0"`

	// CycleTimeout bounds a single publish cycle
	CycleTimeout time.Duration `mapstructure:"cycle_timeout" yaml:"cycle_timeout" validate:"required,gt=0"`

	// SlotID is the object channel slot holding the snapshot
	SlotID string `mapstructure:"slot_id" yaml:"slot_id" validate:"required"`

	// DisplayName is published with the snapshot and checked on restore
	DisplayName string `mapstructure:"display_name" yaml:"display_name" validate:"required"`

	// PublishInterval allows at most one publish per interval (0 = unlimited)
	PublishInterval time.Duration `mapstructure:"publish_interval" yaml:"publish_interval" validate:"gte=0"`

	// PublishBurst is the number of publishes allowed back to back
	PublishBurst int `mapstructure:"publish_burst" yaml:"publish_burst" validate:"gte=1"`
}

// SlotConfig specifies the local snapshot slot.
//
// The Type field determines which backend is used.
// Only the corresponding type-specific section is used.
type SlotConfig struct {
	// Type specifies which slot implementation to use
	// Valid values: filesystem, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem badger"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// ObjectConfig specifies the remote object channel.
//
// The Type field determines which backend is used.
// Only the corresponding type-specific section is used.
type ObjectConfig struct {
	// Type specifies which object store implementation to use
	// Valid values: memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory s3"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metric collection and the HTTP endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port serving /metrics and /healthz
	Port int `mapstructure:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns the loaded and validated configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DITTODRIVE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTODRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// envKeys are the scalar settings that can be overridden from the
// environment without appearing in the config file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"backup.interval",
	"backup.cycle_timeout",
	"backup.slot_id",
	"backup.display_name",
	"backup.publish_interval",
	"backup.publish_burst",
	"slot.type",
	"object.type",
	"metrics.enabled",
	"metrics.port",
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/dittodrive, ~/.config/dittodrive, or
// "." if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittodrive")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittodrive")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
