// Package backup ships drive snapshots to the object channel.
//
// The scheduler wakes up every Interval. If the drive has saves that were not
// published yet, it publishes the latest snapshot to the configured slot,
// pins it, and clears the drive's dirty flag. At startup Restore loads the
// published snapshot back into the drive, or starts a fresh drive when there
// is nothing usable to load.
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/ratelimiter"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/store/object"
)

const (
	// DefaultInterval is how often the scheduler checks for unpublished saves.
	DefaultInterval = 24 * time.Hour

	// DefaultSlot is the object channel slot holding the snapshot.
	DefaultSlot = "drive.data"

	// DefaultDisplayName identifies a drive backup on the channel.
	DefaultDisplayName = "drive.data"

	// DefaultCycleTimeout bounds one background publish cycle.
	DefaultCycleTimeout = 10 * time.Minute

	captionTitle = "DittoDrive Data Backup File"
	captionBody  = "Do not edit or delete this object. It is the backup of the drive data."
	captionTime  = "2006-01-02 15:04:05"
)

// State is the scheduler's position in a publish cycle.
type State int32

const (
	StateIdle State = iota
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePublishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// Config contains configuration for the scheduler.
type Config struct {
	// Interval is how often to check for unpublished saves (default: 24h)
	Interval time.Duration

	// CycleTimeout bounds one background cycle (default: 10m)
	CycleTimeout time.Duration

	// Slot is the object channel slot (default: "drive.data")
	Slot string

	// DisplayName is published with the snapshot and checked on restore
	// (default: "drive.data")
	DisplayName string

	// PublishInterval limits publishes to one per interval. Zero means
	// unlimited.
	PublishInterval time.Duration

	// PublishBurst is the number of publishes allowed back to back
	// (default: 1)
	PublishBurst int

	// Metrics receives publish and restore observations. Nil disables them.
	Metrics Metrics

	// Clock overrides time.Now for captions and stats.
	Clock func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.CycleTimeout <= 0 {
		c.CycleTimeout = DefaultCycleTimeout
	}
	if c.Slot == "" {
		c.Slot = DefaultSlot
	}
	if c.DisplayName == "" {
		c.DisplayName = DefaultDisplayName
	}
	if c.PublishBurst < 1 {
		c.PublishBurst = 1
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Scheduler publishes drive snapshots to an object store.
//
// Only one cycle (Tick or Restore) runs at a time. The background worker
// finishes its current cycle before waiting for the next tick.
//
// Thread Safety: Safe for concurrent use.
type Scheduler struct {
	store   *drive.Store
	objects object.Store
	config  Config
	limiter *ratelimiter.RateLimiter

	cycleMu sync.Mutex
	state   atomic.Int32

	lifecycleMu sync.Mutex
	started     bool
	stopOnce    sync.Once
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// New creates a scheduler. It is not started; call Restore and then Start.
func New(store *drive.Store, objects object.Store, config Config) *Scheduler {
	config.applyDefaults()

	return &Scheduler{
		store:   store,
		objects: objects,
		config:  config,
		limiter: ratelimiter.New(config.PublishInterval, config.PublishBurst),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// State returns the current cycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// ============================================================================
// Lifecycle
// ============================================================================

// Start launches the background worker. Subsequent calls are no-ops.
func (s *Scheduler) Start() {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started {
		return
	}
	s.started = true

	logger.Info("Starting backup scheduler: interval=%s slot=%s", s.config.Interval, s.config.Slot)
	go s.worker()
}

// Stop signals the worker and waits for any in-progress cycle to finish.
// Safe to call multiple times, and before Start.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.lifecycleMu.Lock()
	started := s.started
	s.lifecycleMu.Unlock()

	if !started {
		return nil
	}

	s.stopOnce.Do(func() {
		logger.Info("Stopping backup scheduler...")
		close(s.stopCh)
	})

	select {
	case <-s.doneCh:
		logger.Info("Backup scheduler stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Backup scheduler shutdown timeout")
		return ctx.Err()
	}
}

// RunNow runs one cycle immediately and blocks until it completes.
func (s *Scheduler) RunNow(ctx context.Context) (*Stats, error) {
	logger.Info("Running backup cycle (manual trigger)")
	return s.Tick(ctx)
}

func (s *Scheduler) worker() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.config.CycleTimeout)
			stats, err := s.Tick(ctx)
			cancel()

			if err != nil {
				logger.Error("Backup cycle failed, will retry next tick: %v", err)
			} else if stats.Published {
				logger.Info("Backup cycle completed: %s", stats.Summary())
			}

		case <-s.stopCh:
			return
		}
	}
}

// ============================================================================
// Publish cycle
// ============================================================================

// Tick runs one publish cycle.
//
// A clean drive is left alone. A dirty drive has its latest snapshot
// published and pinned; the dirty flag is cleared only if no save happened
// while publishing. A publish failure leaves the drive dirty and is returned;
// the next tick retries. Pin failures are logged and never returned.
func (s *Scheduler) Tick(ctx context.Context) (*Stats, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	stats := &Stats{StartTime: s.config.Clock()}
	s.config.Metrics.ObserveDrive(s.store.Stats())

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	if !s.store.Dirty() {
		logger.Debug("Backup: no unpublished changes")
		s.config.Metrics.RecordSkippedTick()
		stats.EndTime = s.config.Clock()
		return stats, nil
	}

	s.setState(StatePublishing)
	defer s.setState(StateIdle)

	snap, err := s.store.LatestSnapshot()
	if err != nil {
		stats.EndTime = s.config.Clock()
		return stats, fmt.Errorf("failed to snapshot drive: %w", err)
	}
	stats.Generation = snap.Generation
	stats.Bytes = len(snap.Data)

	ack, err := s.publish(ctx, snap.Data)
	if err != nil {
		stats.EndTime = s.config.Clock()
		return stats, err
	}
	stats.Published = true
	stats.PublishID = ack.PublishID

	if !s.store.MarkClean(snap.Generation) {
		logger.Debug("Backup: drive changed while publishing, staying dirty")
		stats.StillDirty = true
	}

	stats.EndTime = s.config.Clock()
	return stats, nil
}

// publish waits for the rate limiter, publishes data and pins the result.
func (s *Scheduler) publish(ctx context.Context, data []byte) (object.Ack, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return object.Ack{}, fmt.Errorf("publish rate limit wait: %w", err)
	}

	start := time.Now()
	ack, err := s.objects.Publish(ctx, s.config.Slot, data, s.config.DisplayName, s.caption())
	s.config.Metrics.ObservePublish(time.Since(start), len(data), err)
	if err != nil {
		return object.Ack{}, fmt.Errorf("failed to publish snapshot to %s: %w", s.config.Slot, err)
	}

	logger.Info("Published drive snapshot: slot=%s bytes=%d version=%s", s.config.Slot, len(data), ack.Version)

	s.pin(ctx, ack)
	return ack, nil
}

// pin marks ack as canonical. The outcome is only logged.
func (s *Scheduler) pin(ctx context.Context, ack object.Ack) {
	if err := s.objects.Pin(ctx, ack); err != nil {
		s.config.Metrics.RecordPinFailure()
		logger.Warn("Failed to pin published snapshot %s: %v", ack.PublishID, err)
	}
}

func (s *Scheduler) caption() string {
	return fmt.Sprintf("%s\n\n%s\n\nLast Updated: %s (UTC +00:00)",
		captionTitle, captionBody, s.config.Clock().UTC().Format(captionTime))
}

// ============================================================================
// Restore
// ============================================================================

// RestoreOutcome tells how Restore initialized the drive.
type RestoreOutcome string

const (
	RestoreRestored      RestoreOutcome = "restored"
	RestoreNotFound      RestoreOutcome = "not_found"
	RestoreWrongIdentity RestoreOutcome = "wrong_identity"
	RestoreCorrupt       RestoreOutcome = "corrupt"
	RestoreFetchFailed   RestoreOutcome = "fetch_failed"
)

// Restore initializes the drive from the published snapshot.
//
// On success the drive holds the published state and is clean. Otherwise
// (nothing published, a foreign object in the slot, an undecodable
// snapshot, or a fetch error) the drive is reset to an empty root, saved,
// and published right away. A failed fallback publish is logged; the drive
// stays dirty and the next tick retries.
//
// The returned error is non-nil only when the fallback could not save the
// fresh drive locally or ctx is done.
func (s *Scheduler) Restore(ctx context.Context) (RestoreOutcome, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if err := ctx.Err(); err != nil {
		return RestoreFetchFailed, err
	}

	outcome, err := s.load(ctx)
	s.config.Metrics.RecordRestore(outcome)
	if err == nil {
		st := s.store.Stats()
		logger.Info("Drive data restored from %s: folders=%d files=%d", s.config.Slot, st.Folders, st.Files)
		return outcome, nil
	}

	logger.Warn("Cannot restore drive data (%s): %v", outcome, err)
	logger.Info("Creating new drive data")

	s.store.Reset()
	_, saveErr := s.store.Save(ctx)
	if saveErr != nil && !errors.Is(saveErr, drive.ErrPersistence) {
		return outcome, saveErr
	}

	snap, err := s.store.LatestSnapshot()
	if err != nil {
		return outcome, fmt.Errorf("failed to snapshot fresh drive: %w", err)
	}

	s.setState(StatePublishing)
	defer s.setState(StateIdle)

	if _, pubErr := s.publish(ctx, snap.Data); pubErr != nil {
		logger.Error("Failed to publish fresh drive data, will retry next tick: %v", pubErr)
	} else {
		s.store.MarkClean(snap.Generation)
	}

	return outcome, saveErr
}

// load fetches, checks and decodes the published snapshot into the store.
func (s *Scheduler) load(ctx context.Context) (RestoreOutcome, error) {
	obj, err := s.objects.Fetch(ctx, s.config.Slot)
	if err != nil {
		if errors.Is(err, object.ErrObjectNotFound) {
			return RestoreNotFound, fmt.Errorf("no backup in slot %s", s.config.Slot)
		}
		return RestoreFetchFailed, fmt.Errorf("failed to fetch backup: %w", err)
	}

	if obj.DisplayName != s.config.DisplayName {
		return RestoreWrongIdentity, fmt.Errorf("slot %s holds %q, want %q", s.config.Slot, obj.DisplayName, s.config.DisplayName)
	}

	if err := s.store.Load(ctx, obj.Data); err != nil {
		if errors.Is(err, drive.ErrCorruptSnapshot) {
			return RestoreCorrupt, err
		}
		return RestoreFetchFailed, err
	}
	return RestoreRestored, nil
}

// ============================================================================
// Stats
// ============================================================================

// Stats describes one publish cycle.
type Stats struct {
	StartTime  time.Time // When the cycle started
	EndTime    time.Time // When the cycle ended
	Published  bool      // Whether a snapshot was published
	StillDirty bool      // Whether saves happened during the publish
	Generation uint64    // Save generation of the published snapshot
	Bytes      int       // Size of the published snapshot
	PublishID  uuid.UUID // Publish ID from the object store
}

// Duration returns the cycle duration.
func (s *Stats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the cycle.
func (s *Stats) Summary() string {
	return fmt.Sprintf("published=%v generation=%d bytes=%d still_dirty=%v publish_id=%s duration=%s",
		s.Published, s.Generation, s.Bytes, s.StillDirty, s.PublishID, s.Duration())
}
