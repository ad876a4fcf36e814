package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittodrive/pkg/backup"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// backupMetrics is the Prometheus implementation of backup.Metrics.
type backupMetrics struct {
	publishTotal    *prometheus.CounterVec
	publishDuration prometheus.Histogram
	snapshotBytes   prometheus.Gauge
	pinFailures     prometheus.Counter
	skippedTicks    prometheus.Counter
	restoreTotal    *prometheus.CounterVec
	driveEntries    *prometheus.GaugeVec
}

// NewBackupMetrics creates a Prometheus-backed backup.Metrics.
//
// Returns nil if metrics are not enabled, which makes the scheduler use its
// no-op implementation.
func NewBackupMetrics() backup.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newBackupMetrics(GetRegistry())
}

func newBackupMetrics(reg prometheus.Registerer) *backupMetrics {
	return &backupMetrics{
		publishTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_backup_publish_total",
				Help: "Total number of snapshot publishes by status",
			},
			[]string{"status"},
		),
		publishDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "dittodrive_backup_publish_duration_seconds",
				Help: "Duration of snapshot publishes in seconds",
				Buckets: []float64{
					0.05, // 50ms
					0.1,  // 100ms
					0.5,  // 500ms
					1.0,  // 1s
					5.0,  // 5s
					10.0, // 10s
					30.0, // 30s
					60.0, // 1min
				},
			},
		),
		snapshotBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittodrive_backup_snapshot_bytes",
				Help: "Size of the last published snapshot in bytes",
			},
		),
		pinFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_backup_pin_failures_total",
				Help: "Total number of pins that failed after a successful publish",
			},
		),
		skippedTicks: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittodrive_backup_skipped_ticks_total",
				Help: "Total number of scheduler ticks with nothing to publish",
			},
		),
		restoreTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodrive_backup_restore_total",
				Help: "Total number of startup restores by outcome",
			},
			[]string{"outcome"},
		),
		driveEntries: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dittodrive_drive_entries",
				Help: "Number of drive entries by kind",
			},
			[]string{"kind"}, // folder, file, trashed, registered
		),
	}
}

// ObservePublish implements backup.Metrics.ObservePublish
func (m *backupMetrics) ObservePublish(duration time.Duration, bytes int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.publishTotal.WithLabelValues(status).Inc()
	m.publishDuration.Observe(duration.Seconds())
	if err == nil {
		m.snapshotBytes.Set(float64(bytes))
	}
}

// RecordPinFailure implements backup.Metrics.RecordPinFailure
func (m *backupMetrics) RecordPinFailure() {
	m.pinFailures.Inc()
}

// RecordSkippedTick implements backup.Metrics.RecordSkippedTick
func (m *backupMetrics) RecordSkippedTick() {
	m.skippedTicks.Inc()
}

// RecordRestore implements backup.Metrics.RecordRestore
func (m *backupMetrics) RecordRestore(outcome backup.RestoreOutcome) {
	m.restoreTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveDrive implements backup.Metrics.ObserveDrive
func (m *backupMetrics) ObserveDrive(stats drive.Stats) {
	m.driveEntries.WithLabelValues("folder").Set(float64(stats.Folders))
	m.driveEntries.WithLabelValues("file").Set(float64(stats.Files))
	m.driveEntries.WithLabelValues("trashed").Set(float64(stats.Trashed))
	m.driveEntries.WithLabelValues("registered").Set(float64(stats.Registered))
}
