package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"tsa-volume-tracker/internal/config"
	"tsa-volume-tracker/internal/database"
)

// Scheduler fires report runs on the configured cron schedule, evaluated
// in the report timezone.
type Scheduler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	config   *config.Config
	runner   *Runner
	db       *database.DB
	schedule cron.Schedule
	loc      *time.Location
	paused   atomic.Bool
	logger   *slog.Logger
	now      func() time.Time
}

// SchedulerStatus describes the scheduler for the admin API.
type SchedulerStatus struct {
	Running  bool      `json:"running"`
	Paused   bool      `json:"paused"`
	Schedule string    `json:"schedule"`
	Timezone string    `json:"timezone"`
	NextRun  time.Time `json:"next_run"`
}

// NewScheduler creates a scheduler from the configured cron expression
// and timezone.
func NewScheduler(cfg *config.Config, runner *Runner, db *database.DB) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
		runner:   runner,
		db:       db,
		schedule: schedule,
		loc:      loc,
		logger:   slog.Default().With("component", "scheduler"),
		now:      time.Now,
	}, nil
}

// Start begins the background scheduling loop
func (s *Scheduler) Start() {
	s.logger.Info("Starting report scheduler",
		"schedule", s.config.Schedule,
		"timezone", s.config.Timezone,
		"next_run", s.NextRun())

	go s.loop()
}

// Stop gracefully stops the scheduling loop
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping report scheduler")
	s.cancel()
}

// Pause temporarily suspends scheduled runs
func (s *Scheduler) Pause() {
	s.paused.Store(true)
	s.logger.Info("Report scheduler paused")
}

// Resume re-enables scheduled runs
func (s *Scheduler) Resume() {
	s.paused.Store(false)
	s.logger.Info("Report scheduler resumed")
}

// IsPaused returns true if the scheduler is currently paused
func (s *Scheduler) IsPaused() bool {
	return s.paused.Load()
}

// IsRunning returns true if the scheduler has not been stopped
func (s *Scheduler) IsRunning() bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
		return true
	}
}

// NextRun returns the next scheduled fire time in the report timezone.
func (s *Scheduler) NextRun() time.Time {
	return s.schedule.Next(s.now().In(s.loc))
}

// Status reports the scheduler state for the admin API.
func (s *Scheduler) Status() SchedulerStatus {
	return SchedulerStatus{
		Running:  s.IsRunning(),
		Paused:   s.IsPaused(),
		Schedule: s.config.Schedule,
		Timezone: s.config.Timezone,
		NextRun:  s.NextRun(),
	}
}

// loop arms a timer for each upcoming fire time in turn.
func (s *Scheduler) loop() {
	for {
		now := s.now().In(s.loc)
		next := s.schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-s.ctx.Done():
			timer.Stop()
			s.logger.Info("Report scheduler stopped")
			return

		case <-timer.C:
			s.runScheduled()
		}
	}
}

// runScheduled executes one scheduled pipeline run, unless paused or a
// successful run already happened today.
func (s *Scheduler) runScheduled() {
	if s.paused.Load() {
		s.logger.Debug("Scheduler paused, skipping scheduled run")
		return
	}

	// One report per local day: a manual run earlier in the morning
	// satisfies the schedule.
	now := s.now().In(s.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	done, err := s.db.Reports.HasSuccessSince(midnight)
	if err != nil {
		s.logger.Warn("Failed to check for an earlier run today", "error", err)
	} else if done {
		s.logger.Info("Report already sent today, skipping scheduled run")
		return
	}

	result := s.runner.RunOnce(s.ctx, RunOptions{
		Trigger: database.TriggerScheduled,
		DryRun:  s.config.DryRun,
	})
	if !result.Success {
		s.logger.Error("Scheduled report run failed",
			"status", result.StatusCode,
			"message", result.Message)
	}
}
