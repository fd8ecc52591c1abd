package repository

import (
	"context"

	"github.com/youtube-comments-etl/internal/database"
	"github.com/youtube-comments-etl/internal/models"
)

// RunRepository defines the interface for the pipeline run ledger
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	Update(ctx context.Context, run *models.Run) error
	GetByID(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, limit int) ([]*models.Run, error)
	GetPendingRuns(ctx context.Context) ([]*models.Run, error)
	MarkRunAsRunning(ctx context.Context, runID string) (bool, error)
	FailInterruptedRuns(ctx context.Context, reason string) (int64, error)
	CreateStages(ctx context.Context, runID string, stages []string) error
	UpdateStage(ctx context.Context, stage *models.StageRun) error
	GetStages(ctx context.Context, runID string) ([]models.StageRun, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Run RunRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Run: NewRunRepo(db),
	}
}
