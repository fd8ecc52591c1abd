package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/youtube-comments-etl/internal/database"
	"github.com/youtube-comments-etl/internal/models"
)

const runColumns = `id, trigger, video_id, status, failed_stage, error, duration_ms,
			created_at, started_at, completed_at`

// runRepo is the concrete implementation of RunRepository
type runRepo struct {
	db *database.DB
}

// NewRunRepo creates a new run repository
func NewRunRepo(db *database.DB) RunRepository {
	return &runRepo{db: db}
}

// Create inserts a new run
func (r *runRepo) Create(ctx context.Context, run *models.Run) error {
	query := `
		INSERT INTO pipeline_runs (id, trigger, video_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Trigger, run.VideoID, run.Status, run.CreatedAt,
	)
	return err
}

// Update writes the run's status, outcome and timings
func (r *runRepo) Update(ctx context.Context, run *models.Run) error {
	query := `
		UPDATE pipeline_runs SET
			status = $1, failed_stage = $2, error = $3, duration_ms = $4,
			started_at = $5, completed_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		run.Status, nullString(run.FailedStage), nullString(run.Error), run.DurationMs,
		run.StartedAt, run.CompletedAt, run.ID,
	)
	return err
}

// GetByID retrieves a run by ID, or nil when it does not exist
func (r *runRepo) GetByID(ctx context.Context, id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs, newest first
func (r *runRepo) List(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*models.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetPendingRuns retrieves pending runs, oldest first
func (r *runRepo) GetPendingRuns(ctx context.Context) ([]*models.Run, error) {
	query := `
		SELECT id, trigger, video_id, created_at
		FROM pipeline_runs WHERE status = 'pending'
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.Trigger, &run.VideoID, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending run: %w", err)
		}
		run.Status = models.RunStatusPending
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// MarkRunAsRunning atomically claims a pending run
func (r *runRepo) MarkRunAsRunning(ctx context.Context, runID string) (bool, error) {
	query := `
		UPDATE pipeline_runs SET status = 'running', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), runID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// FailInterruptedRuns marks runs left running by a previous process as failed
func (r *runRepo) FailInterruptedRuns(ctx context.Context, reason string) (int64, error) {
	query := `
		UPDATE pipeline_runs SET status = 'failed', error = $1, completed_at = $2
		WHERE status = 'running'
	`
	result, err := r.db.ExecContext(ctx, query, reason, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateStages inserts one pending row per stage using the COPY protocol
func (r *runRepo) CreateStages(ctx context.Context, runID string, stages []string) error {
	if len(stages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("pipeline_run_stages",
		"run_id", "stage", "position", "status",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, stage := range stages {
		if _, err := stmt.ExecContext(ctx, runID, stage, i+1, string(models.StageStatusPending)); err != nil {
			return fmt.Errorf("copy stage %s: %w", stage, err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateStage writes a stage's status, counters and timings
func (r *runRepo) UpdateStage(ctx context.Context, stage *models.StageRun) error {
	query := `
		UPDATE pipeline_run_stages SET
			status = $1, records_in = $2, records_out = $3, dropped = $4,
			duration_ms = $5, error = $6, started_at = $7, completed_at = $8
		WHERE run_id = $9 AND stage = $10
	`
	_, err := r.db.ExecContext(ctx, query,
		stage.Status, stage.RecordsIn, stage.RecordsOut, stage.Dropped,
		stage.DurationMs, nullString(stage.Error), stage.StartedAt, stage.CompletedAt,
		stage.RunID, stage.Stage,
	)
	return err
}

// GetStages returns a run's stage rows in execution order
func (r *runRepo) GetStages(ctx context.Context, runID string) ([]models.StageRun, error) {
	query := `
		SELECT run_id, stage, position, status, records_in, records_out, dropped,
			duration_ms, error, started_at, completed_at
		FROM pipeline_run_stages WHERE run_id = $1 ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]models.StageRun, 0)
	for rows.Next() {
		var s models.StageRun
		var stageErr sql.NullString
		var startedAt, completedAt sql.NullTime

		err := rows.Scan(
			&s.RunID, &s.Stage, &s.Position, &s.Status, &s.RecordsIn, &s.RecordsOut,
			&s.Dropped, &s.DurationMs, &stageErr, &startedAt, &completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}

		s.Error = stageErr.String
		if startedAt.Valid {
			s.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			s.CompletedAt = &completedAt.Time
		}
		stages = append(stages, s)
	}

	return stages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var failedStage, runErr sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.Trigger, &run.VideoID, &run.Status, &failedStage, &runErr,
		&run.DurationMs, &run.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.FailedStage = failedStage.String
	run.Error = runErr.String
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
