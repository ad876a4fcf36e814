package config

import (
	"github.com/marmos91/dittodrive/pkg/backup"
	"github.com/marmos91/dittodrive/pkg/metrics"
	s3store "github.com/marmos91/dittodrive/pkg/store/object/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server exposes /metrics and /healthz (nil if disabled)
	Server *metrics.Server

	// Backup is passed to the scheduler (nil if disabled)
	Backup backup.Metrics

	// S3 is passed to the S3 object store (nil if disabled)
	S3 s3store.S3Metrics
}

// InitializeMetrics creates the metrics components.
//
// When metrics are enabled it initializes the global registry, creates the
// HTTP server and the Prometheus collectors. When disabled every field is
// nil and components fall back to their no-op implementations.
//
// status is served on /healthz and may be nil.
func InitializeMetrics(cfg *Config, status func() any) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port:   cfg.Metrics.Port,
			Status: status,
		}),
		Backup: metrics.NewBackupMetrics(),
		S3:     metrics.NewS3Metrics(),
	}
}
