// Package etl holds the extract, transform and load stages of the comment
// pipeline and the workflow that runs them in dependency order.
package etl

import (
	"context"
	"fmt"

	"github.com/youtube-comments-etl/internal/models"
)

// Stage names, in execution order
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
)

// Result summarizes the records a stage consumed and produced
type Result struct {
	RecordsIn  int
	RecordsOut int
	Dropped    int
}

// Unit is a single schedulable step of a workflow
type Unit interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// CommentFetcher lists every top-level comment of a video
type CommentFetcher interface {
	FetchComments(ctx context.Context, videoID string) ([]models.Comment, error)
}

// StageError reports which stage of a workflow failed
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
