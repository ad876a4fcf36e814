package backup

import (
	"time"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// Metrics provides observability for the scheduler.
//
// The Prometheus implementation lives in pkg/metrics.
type Metrics interface {
	// ObservePublish records a publish attempt with its duration, snapshot
	// size and outcome.
	ObservePublish(duration time.Duration, bytes int, err error)

	// RecordPinFailure records a pin that failed after a successful publish.
	RecordPinFailure()

	// RecordSkippedTick records a tick that found nothing to publish.
	RecordSkippedTick()

	// RecordRestore records how the drive was initialized at startup.
	RecordRestore(outcome RestoreOutcome)

	// ObserveDrive records the size of the drive tree.
	ObserveDrive(stats drive.Stats)
}

type noopMetrics struct{}

func (noopMetrics) ObservePublish(time.Duration, int, error) {}
func (noopMetrics) RecordPinFailure()                        {}
func (noopMetrics) RecordSkippedTick()                       {}
func (noopMetrics) RecordRestore(RestoreOutcome)             {}
func (noopMetrics) ObserveDrive(drive.Stats)                 {}
