// Package scheduler runs periodic maintenance jobs using gocron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	defaultInterval = time.Hour
	pruneTimeout    = time.Minute
)

// Pruner deletes delivery records created before a cutoff.
// storage.DeliveryStore satisfies it.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds the scheduler configuration.
type Config struct {
	Store Pruner
	// Retention is how long records are kept. Zero or negative disables the job.
	Retention time.Duration
	// Interval between runs. Defaults to one hour.
	Interval time.Duration
	Logger   *slog.Logger
}

// Scheduler manages the delivery log retention job.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cron:   cron,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Start schedules the retention job, running it once immediately, and starts
// the gocron scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	if s.cfg.Retention <= 0 {
		s.logger.Info("delivery log retention disabled")
		s.cron.Start()
		return nil
	}

	job, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.prune),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("delivery-log-retention"),
	)
	if err != nil {
		return fmt.Errorf("scheduling retention job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("retention scheduler started",
		"job_id", job.ID(), "retention", s.cfg.Retention, "interval", s.cfg.Interval)
	return nil
}

// Stop shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// prune deletes delivery records older than the retention window.
func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.cfg.Retention)
	n, err := s.cfg.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("pruning delivery log failed", "cutoff", cutoff, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("pruned delivery log", "deleted", n, "cutoff", cutoff)
	}
}
