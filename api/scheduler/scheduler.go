package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/sos-dispatch-api/models"
)

const (
	// LockName is the distributed lock the sweep job runs under
	LockName = "dispatch_sweep"
	// DefaultBatchSize caps how many requests one pass handles per query
	DefaultBatchSize = 200

	lockTTL    = time.Minute
	jobTimeout = time.Minute
)

// Engine is the part of the dispatch engine the sweeper drives
type Engine interface {
	Timeout(ctx context.Context, id string) error
	ResumeReassignment(ctx context.Context, id string) error
}

// Finder lists requests that need the sweeper's attention
type Finder interface {
	FindOverdue(ctx context.Context, now time.Time, limit int) ([]models.DispatchRequest, error)
	FindUnresolved(ctx context.Context, before time.Time, limit int) ([]models.DispatchRequest, error)
}

// Locker is a named lock with an expiry, so a crashed holder cannot block the
// job forever
type Locker interface {
	TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// SweepResult counts what one pass did
type SweepResult struct {
	Expired int
	Resumed int
	Failed  int
	Skipped bool
}

// Scheduler periodically expires overdue requests and finishes reassignments
// that were interrupted, recovering what in-process timers lose on a restart.
type Scheduler struct {
	cron       *cron.Cron
	engine     Engine
	finder     Finder
	lock       Locker
	schedule   string
	grace      time.Duration
	batch      int
	now        func() time.Time
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(engine Engine, finder Finder, lock Locker, schedule string, grace time.Duration) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		host, _ := os.Hostname()
		instanceID = fmt.Sprintf("%s-%d", host, time.Now().UnixNano())
	}
	if lock == nil {
		lock = NewLocalLock()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		engine:     engine,
		finder:     finder,
		lock:       lock,
		schedule:   schedule,
		grace:      grace,
		batch:      DefaultBatchSize,
		now:        func() time.Time { return time.Now().UTC() },
		instanceID: instanceID,
	}
}

// Start registers the sweep job and starts the cron loop
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return fmt.Errorf("register sweep job %q: %w", s.schedule, err)
	}
	s.cron.Start()
	zap.S().Infow("Dispatch sweeper started", "schedule", s.schedule, "instance", s.instanceID)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running pass
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Dispatch sweeper stopped")
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		zap.S().Errorw("dispatch sweep failed", "error", err)
	}
}

// RunOnce performs a single sweep if this instance gets the lock
func (s *Scheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	acquired, err := s.lock.TryAcquireLock(ctx, LockName, s.instanceID, lockTTL)
	if err != nil {
		return res, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		zap.S().Debug("Dispatch sweep already running on another instance, skipping")
		res.Skipped = true
		return res, nil
	}
	defer func() {
		if err := s.lock.ReleaseLock(context.Background(), LockName, s.instanceID); err != nil {
			zap.S().Warnw("failed to release sweep lock", "error", err)
		}
	}()

	now := s.now()
	overdue, err := s.finder.FindOverdue(ctx, now, s.batch)
	if err != nil {
		return res, fmt.Errorf("find overdue requests: %w", err)
	}
	for _, r := range overdue {
		if err := s.engine.Timeout(ctx, r.ID); err != nil {
			res.Failed++
			zap.S().Warnw("failed to expire overdue request", "requestId", r.ID, "error", err)
			continue
		}
		res.Expired++
	}

	unresolved, err := s.finder.FindUnresolved(ctx, now.Add(-s.grace), s.batch)
	if err != nil {
		return res, fmt.Errorf("find unresolved requests: %w", err)
	}
	for _, r := range unresolved {
		if err := s.engine.ResumeReassignment(ctx, r.ID); err != nil {
			res.Failed++
			zap.S().Warnw("failed to resume reassignment", "requestId", r.ID, "error", err)
			continue
		}
		res.Resumed++
	}

	if res.Expired+res.Resumed+res.Failed > 0 {
		zap.S().Infow("Dispatch sweep complete",
			"expired", res.Expired,
			"resumed", res.Resumed,
			"failed", res.Failed,
			"instance", s.instanceID,
		)
	}
	return res, nil
}
