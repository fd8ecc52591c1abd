// Package scheduler enqueues pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/models"
)

// RunTrigger records a new run request
type RunTrigger interface {
	TriggerRun(ctx context.Context, trigger models.Trigger) (*models.Run, error)
}

// Scheduler enqueues one scheduled run per cron activation. Runs are only
// queued here; the run processor executes them.
type Scheduler struct {
	cron     *cron.Cron
	entryID  cron.EntryID
	trigger  RunTrigger
	schedule string
	log      zerolog.Logger
}

// New registers the trigger at schedule, evaluated in timezone
func New(schedule, timezone string, trigger RunTrigger, log zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		trigger:  trigger,
		schedule: schedule,
		log:      log.With().Str("component", "scheduler").Logger(),
	}

	id, err := s.cron.AddFunc(schedule, s.Fire)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	s.entryID = id

	return s, nil
}

// Fire enqueues a scheduled run immediately
func (s *Scheduler) Fire() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	run, err := s.trigger.TriggerRun(ctx, models.TriggerSchedule)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to enqueue scheduled run")
		return
	}
	s.log.Info().Str("run_id", run.ID).Msg("Scheduled run enqueued")
}

// Start begins evaluating the schedule in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().
		Str("schedule", s.schedule).
		Time("next", s.Next()).
		Msg("Scheduler started")
}

// Stop halts the schedule and waits for an in-flight activation
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// Next returns the next activation time, zero before Start
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}
