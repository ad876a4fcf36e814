package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoDrive Configuration File
#
# Every setting can be overridden with an environment variable:
# DITTODRIVE_<SECTION>_<KEY>, e.g. DITTODRIVE_LOGGING_LEVEL=DEBUG.
#
# slot.type:   filesystem | badger
# object.type: memory | s3
#
`

// InitConfig writes a default configuration file to the default location
// and returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration as YAML to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := renderConfig(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func renderConfig(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(configDocument(cfg)); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// configDocument mirrors cfg with durations rendered as strings ("30s"),
// which yaml.v3 would otherwise encode as nanoseconds.
func configDocument(cfg *Config) map[string]any {
	return map[string]any{
		"logging": cfg.Logging,
		"server": map[string]any{
			"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
		},
		"backup": map[string]any{
			"interval":         cfg.Backup.Interval.String(),
			"cycle_timeout":    cfg.Backup.CycleTimeout.String(),
			"slot_id":          cfg.Backup.SlotID,
			"display_name":     cfg.Backup.DisplayName,
			"publish_interval": cfg.Backup.PublishInterval.String(),
			"publish_burst":    cfg.Backup.PublishBurst,
		},
		"slot":    cfg.Slot,
		"object":  cfg.Object,
		"metrics": cfg.Metrics,
	}
}
