package etl

import (
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/artifact"
)

// New wires extract, transform and load into a linear workflow for videoID
func New(fetcher CommentFetcher, store *artifact.Store, videoID string, log zerolog.Logger) (*Workflow, error) {
	wf := NewWorkflow(log)

	units := []Unit{
		NewExtractUnit(fetcher, store, videoID, log),
		NewTransformUnit(store, log),
		NewLoadUnit(store, log),
	}
	for _, u := range units {
		if err := wf.Register(u); err != nil {
			return nil, err
		}
	}

	if err := wf.DependsOn(StageTransform, StageExtract); err != nil {
		return nil, err
	}
	if err := wf.DependsOn(StageLoad, StageTransform); err != nil {
		return nil, err
	}

	return wf, nil
}
