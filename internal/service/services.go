package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/config"
	"github.com/youtube-comments-etl/internal/etl"
	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/repository"
)

var (
	ErrInvalidTrigger  = errors.New("invalid trigger")
	ErrInvalidArtifact = errors.New("invalid artifact, expected raw, cleaned or final")
	ErrInvalidFormat   = errors.New("invalid format, expected json, ndjson or csv")
)

// PipelineRunner executes the extract/transform/load workflow
type PipelineRunner interface {
	Order() ([]string, error)
	Run(ctx context.Context, obs etl.Observer) error
}

// RunService defines the interface for pipeline run management
type RunService interface {
	TriggerRun(ctx context.Context, trigger models.Trigger) (*models.Run, error)
	ExecuteRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.RunResponse, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)
	StartProcessor(ctx context.Context)
	StopProcessor()
}

// ArtifactService defines the interface for reading pipeline output
type ArtifactService interface {
	StreamComments(ctx context.Context, w http.ResponseWriter, name, format string) error
	Summary(ctx context.Context) ([]models.ArtifactInfo, error)
}

// Services holds all service interfaces
type Services struct {
	Run      RunService
	Artifact ArtifactService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, runner PipelineRunner, store *artifact.Store, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Run:      newRunService(repos.Run, runner, cfg, log),
		Artifact: newArtifactService(store, log),
	}
}
