// Package metrics provides Prometheus metrics for dittodrive components.
//
// Metrics are optional. Until InitRegistry is called every constructor
// returns nil and components fall back to their no-op implementations.
//
// Usage:
//
//	metrics.InitRegistry()
//
//	scheduler := backup.New(store, objects, backup.Config{
//	    Metrics: metrics.NewBackupMetrics(),
//	})
//	s3Store, err := s3.New(ctx, s3.Config{Metrics: metrics.NewS3Metrics(), ...})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is the global Prometheus registry. Written once by
	// InitRegistry, read many times.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry and registers the
// Go runtime and process collectors on it. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global registry, or nil if metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
