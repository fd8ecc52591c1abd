package etl

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/models"
)

// ExtractUnit fetches the video's comments and writes the raw artifact
type ExtractUnit struct {
	fetcher CommentFetcher
	store   *artifact.Store
	videoID string
	log     zerolog.Logger
}

// NewExtractUnit creates the extract stage
func NewExtractUnit(fetcher CommentFetcher, store *artifact.Store, videoID string, log zerolog.Logger) *ExtractUnit {
	return &ExtractUnit{
		fetcher: fetcher,
		store:   store,
		videoID: videoID,
		log:     log.With().Str("stage", StageExtract).Logger(),
	}
}

func (u *ExtractUnit) Name() string { return StageExtract }

func (u *ExtractUnit) Run(ctx context.Context) (Result, error) {
	comments, err := u.fetcher.FetchComments(ctx, u.videoID)
	if err != nil {
		return Result{}, err
	}

	if err := u.store.WriteCSV(models.RawArtifact, comments); err != nil {
		return Result{}, fmt.Errorf("write raw comments: %w", err)
	}

	u.log.Info().
		Str("video_id", u.videoID).
		Int("records", len(comments)).
		Str("artifact", models.RawArtifact).
		Msg("Raw comments written")

	return Result{RecordsIn: len(comments), RecordsOut: len(comments)}, nil
}

// TransformUnit cleans the raw artifact into the cleaned artifact
type TransformUnit struct {
	store *artifact.Store
	log   zerolog.Logger
}

// NewTransformUnit creates the transform stage
func NewTransformUnit(store *artifact.Store, log zerolog.Logger) *TransformUnit {
	return &TransformUnit{
		store: store,
		log:   log.With().Str("stage", StageTransform).Logger(),
	}
}

func (u *TransformUnit) Name() string { return StageTransform }

func (u *TransformUnit) Run(ctx context.Context) (Result, error) {
	raw, err := u.store.ReadCSV(models.RawArtifact)
	if err != nil {
		return Result{}, fmt.Errorf("read raw comments: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cleaned, dropped := Clean(raw, u.log)

	if err := u.store.WriteCSV(models.CleanedArtifact, cleaned); err != nil {
		return Result{}, fmt.Errorf("write cleaned comments: %w", err)
	}

	event := u.log.Info()
	if dropped > 0 {
		event = u.log.Warn()
	}
	event.
		Int("records_in", len(raw)).
		Int("records_out", len(cleaned)).
		Int("dropped", dropped).
		Str("artifact", models.CleanedArtifact).
		Msg("Comments cleaned")

	return Result{RecordsIn: len(raw), RecordsOut: len(cleaned), Dropped: dropped}, nil
}

// LoadUnit re-serializes the cleaned artifact as the final JSON document.
// Records are copied as they are, nulls included.
type LoadUnit struct {
	store *artifact.Store
	log   zerolog.Logger
}

// NewLoadUnit creates the load stage
func NewLoadUnit(store *artifact.Store, log zerolog.Logger) *LoadUnit {
	return &LoadUnit{
		store: store,
		log:   log.With().Str("stage", StageLoad).Logger(),
	}
}

func (u *LoadUnit) Name() string { return StageLoad }

func (u *LoadUnit) Run(ctx context.Context) (Result, error) {
	cleaned, err := u.store.ReadCSV(models.CleanedArtifact)
	if err != nil {
		return Result{}, fmt.Errorf("read cleaned comments: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if err := u.store.WriteJSON(models.FinalArtifact, cleaned); err != nil {
		return Result{}, fmt.Errorf("write final comments: %w", err)
	}

	u.log.Info().
		Int("records", len(cleaned)).
		Str("artifact", models.FinalArtifact).
		Msg("Final comments written")

	return Result{RecordsIn: len(cleaned), RecordsOut: len(cleaned)}, nil
}
