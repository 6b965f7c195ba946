package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/trellis/internal/logfields"
)

// Scheduler wraps gocron for the periodic prebuild job.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
}

func NewScheduler(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, logger: logger}, nil
}

// SchedulePrebuild runs the prebuild function at the given interval. Job
// failures are logged; the schedule keeps running.
func (s *Scheduler) SchedulePrebuild(interval time.Duration, prebuild func() error) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			if err := prebuild(); err != nil {
				s.logger.Error("scheduled prebuild failed", logfields.Error(err))
				return
			}
			s.logger.Info("scheduled prebuild finished",
				logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		}),
		gocron.WithName("prebuild"),
	)
	if err != nil {
		return fmt.Errorf("schedule prebuild job: %w", err)
	}
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info("scheduler stopping")
	return s.scheduler.Shutdown()
}
