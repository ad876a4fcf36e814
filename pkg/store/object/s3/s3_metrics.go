package s3

import "time"

// S3Metrics provides observability for S3 operations.
//
// The Prometheus implementation lives in pkg/metrics. When no metrics are
// configured the store uses a no-op implementation.
type S3Metrics interface {
	// ObserveOperation records an S3 call (GetObject, PutObject, ...) with
	// its duration and outcome.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBytes records bytes transferred; operation is "read" or "write".
	RecordBytes(operation string, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}
