package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/config"
	"github.com/youtube-comments-etl/internal/etl"
	"github.com/youtube-comments-etl/internal/metrics"
	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// runService is the concrete implementation of RunService
type runService struct {
	runRepo      repository.RunRepository
	runner       PipelineRunner
	videoID      string
	runTimeout   time.Duration
	pollInterval time.Duration
	log          zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
	// Artifacts live at fixed paths, so at most one run executes at a time
	execMu sync.Mutex
	sem    chan struct{}
}

// newRunService creates a new RunService
func newRunService(runRepo repository.RunRepository, runner PipelineRunner, cfg *config.Config, log zerolog.Logger) *runService {
	return &runService{
		runRepo:      runRepo,
		runner:       runner,
		videoID:      cfg.YouTube.VideoID,
		runTimeout:   cfg.Pipeline.RunTimeout,
		pollInterval: cfg.Pipeline.PollInterval,
		log:          log.With().Str("service", "run").Logger(),
		sem:          make(chan struct{}, 1),
	}
}

// TriggerRun records a pending run for the processor to pick up
func (s *runService) TriggerRun(ctx context.Context, trigger models.Trigger) (*models.Run, error) {
	if !models.ValidTriggers[trigger] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTrigger, trigger)
	}

	run := &models.Run{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		VideoID:   s.videoID,
		Status:    models.RunStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("trigger", string(trigger)).
		Str("video_id", run.VideoID).
		Msg("Run queued")

	return run, nil
}

// ExecuteRun runs the workflow once for a claimed run and records the
// outcome of the run and of every stage. The returned error is the
// workflow's failure, if any.
func (s *runService) ExecuteRun(ctx context.Context, run *models.Run) error {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	// Ledger writes must survive the run deadline
	ledgerCtx := context.WithoutCancel(ctx)
	log := s.log.With().Str("run_id", run.ID).Logger()

	start := time.Now().UTC()
	if run.StartedAt == nil {
		run.StartedAt = &start
	}
	run.Status = models.RunStatusRunning

	metrics.StartRun()
	log.Info().Str("trigger", string(run.Trigger)).Msg("Run started")

	runErr := s.safeExecute(ctx, ledgerCtx, run, log)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	run.DurationMs = completed.Sub(start).Milliseconds()

	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
		var stageErr *etl.StageError
		if errors.As(runErr, &stageErr) {
			run.FailedStage = stageErr.Stage
		}
	} else {
		run.Status = models.RunStatusSucceeded
	}

	if err := s.runRepo.Update(ledgerCtx, run); err != nil {
		log.Error().Err(err).Msg("Failed to record run outcome")
	}
	metrics.EndRun(string(run.Trigger), string(run.Status), runErr == nil)

	event := log.Info()
	if runErr != nil {
		event = log.Error().Err(runErr).Str("failed_stage", run.FailedStage)
	}
	event.
		Str("status", string(run.Status)).
		Int64("duration_ms", run.DurationMs).
		Msg("Run finished")

	return runErr
}

// safeExecute turns a panic inside the workflow into a run failure
func (s *runService) safeExecute(ctx, ledgerCtx context.Context, run *models.Run, log zerolog.Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Run panicked - recovered")
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.execute(ctx, ledgerCtx, run, log)
}

func (s *runService) execute(ctx, ledgerCtx context.Context, run *models.Run, log zerolog.Logger) error {
	stages, err := s.runner.Order()
	if err != nil {
		return err
	}
	if err := s.runRepo.CreateStages(ledgerCtx, run.ID, stages); err != nil {
		return fmt.Errorf("failed to create stage records: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	return s.runner.Run(runCtx, &stageRecorder{
		repo:  s.runRepo,
		ctx:   ledgerCtx,
		runID: run.ID,
		log:   log,
	})
}

// GetRun retrieves a run with its stage rows, or nil when unknown
func (s *runService) GetRun(ctx context.Context, id string) (*models.RunResponse, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, nil
	}

	stages, err := s.runRepo.GetStages(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.RunResponse{Run: *run, Stages: stages}, nil
}

// ListRuns returns recent runs, newest first
func (s *runService) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.runRepo.List(ctx, limit)
}

// StartProcessor starts the background run processor
func (s *runService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	// the loop holds the group so run goroutines are never added after Wait starts
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if n, err := s.runRepo.FailInterruptedRuns(s.ctx, "interrupted by process restart"); err != nil {
		s.log.Error().Err(err).Msg("Failed to close interrupted runs")
	} else if n > 0 {
		s.log.Warn().Int64("runs", n).Msg("Marked interrupted runs as failed")
	}

	s.log.Info().Dur("poll_interval", s.pollInterval).Msg("Run processor started")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Run processor stopping")
			return
		case <-ticker.C:
			s.processPendingRuns()
		}
	}
}

// StopProcessor stops the background run processor and waits for the loop
// and the current run to finish
func (s *runService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Run processor stopped")
}

// processPendingRuns claims and executes pending runs one at a time
func (s *runService) processPendingRuns() {
	runs, err := s.runRepo.GetPendingRuns(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending runs")
		return
	}

	for _, run := range runs {
		// Blocks while a run is executing
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		claimed, err := s.runRepo.MarkRunAsRunning(s.ctx, run.ID)
		if err != nil || !claimed {
			<-s.sem
			continue
		}
		// a run claimed during shutdown still executes; its cancelled context fails it
		// instead of leaving it marked running
		now := time.Now().UTC()
		run.StartedAt = &now

		s.wg.Add(1)
		go func(r *models.Run) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			// Panic recovery keeps the processor alive
			defer func() {
				if rec := recover(); rec != nil {
					s.log.Error().
						Interface("panic", rec).
						Str("run_id", r.ID).
						Msg("Run panicked - recovered")
					r.Status = models.RunStatusFailed
					r.Error = fmt.Sprintf("panic: %v", rec)
					completed := time.Now().UTC()
					r.CompletedAt = &completed
					s.runRepo.Update(context.WithoutCancel(s.ctx), r)
				}
			}()

			s.ExecuteRun(s.ctx, r)
		}(run)
	}
}

// stageRecorder mirrors workflow progress into the stage ledger
type stageRecorder struct {
	repo  repository.RunRepository
	ctx   context.Context
	runID string
	log   zerolog.Logger
}

func (r *stageRecorder) StageStarted(_ context.Context, stage string, position int) {
	now := time.Now().UTC()
	r.update(&models.StageRun{
		RunID:     r.runID,
		Stage:     stage,
		Position:  position,
		Status:    models.StageStatusRunning,
		StartedAt: &now,
	})
}

func (r *stageRecorder) StageFinished(_ context.Context, stage string, position int, result etl.Result, elapsed time.Duration, err error) {
	completed := time.Now().UTC()
	started := completed.Add(-elapsed)

	row := &models.StageRun{
		RunID:       r.runID,
		Stage:       stage,
		Position:    position,
		Status:      models.StageStatusSucceeded,
		RecordsIn:   result.RecordsIn,
		RecordsOut:  result.RecordsOut,
		Dropped:     result.Dropped,
		DurationMs:  elapsed.Milliseconds(),
		StartedAt:   &started,
		CompletedAt: &completed,
	}
	if err != nil {
		row.Status = models.StageStatusFailed
		row.Error = err.Error()
	}
	r.update(row)
}

func (r *stageRecorder) StageSkipped(_ context.Context, stage string, position int) {
	r.update(&models.StageRun{
		RunID:    r.runID,
		Stage:    stage,
		Position: position,
		Status:   models.StageStatusSkipped,
	})
}

func (r *stageRecorder) update(row *models.StageRun) {
	if err := r.repo.UpdateStage(r.ctx, row); err != nil {
		r.log.Error().Err(err).Str("stage", row.Stage).Msg("Failed to record stage")
	}
}
