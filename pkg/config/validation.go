package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that struct tags cannot express.
func validateCustomRules(cfg *Config) error {
	if cfg.Object.Type == "s3" {
		if bucket, _ := cfg.Object.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("object.s3: bucket is required when object.type is s3")
		}
		if region, _ := cfg.Object.S3["region"].(string); region == "" {
			return fmt.Errorf("object.s3: region is required when object.type is s3")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		return fmt.Errorf("metrics: port is required when metrics are enabled")
	}

	// cycle_timeout <= interval
	if cfg.Backup.CycleTimeout > cfg.Backup.Interval {
		return fmt.Errorf("backup: cycle_timeout (%s) must not exceed interval (%s)",
			cfg.Backup.CycleTimeout, cfg.Backup.Interval)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
