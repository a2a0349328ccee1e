package scheduler

import (
	"io"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher reloads an artifact when it changed on disk.
type Refresher interface {
	Refresh() error
}

// Scheduler periodically asks the model state to pick up a new artifact.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. A non-positive interval disables reloading.
func New(interval time.Duration, target Refresher, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the reload job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 || s.target == nil {
		s.logger.Info("scheduler: model reload disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().WaitForSchedule().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: model reload scheduled", "interval", s.interval.String())
	return nil
}

func (s *Scheduler) run() {
	if err := s.target.Refresh(); err != nil {
		s.logger.Warn("scheduler: model refresh failed", "error", err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
