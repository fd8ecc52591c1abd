package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/models"
)

// ArtifactNames maps the public artifact names to their files
var ArtifactNames = map[string]string{
	"raw":     models.RawArtifact,
	"cleaned": models.CleanedArtifact,
	"final":   models.FinalArtifact,
}

// artifactOrder is the order artifacts are reported in
var artifactOrder = []string{"raw", "cleaned", "final"}

// ValidFormats defines the supported output formats
var ValidFormats = map[string]bool{
	"json":   true,
	"ndjson": true,
	"csv":    true,
}

// artifactService is the concrete implementation of ArtifactService
type artifactService struct {
	store *artifact.Store
	log   zerolog.Logger
}

// newArtifactService creates a new ArtifactService
func newArtifactService(store *artifact.Store, log zerolog.Logger) *artifactService {
	return &artifactService{
		store: store,
		log:   log.With().Str("service", "artifact").Logger(),
	}
}

// StreamComments writes the records of an artifact in the requested format.
// Nothing is written when the artifact is missing or unreadable.
func (s *artifactService) StreamComments(ctx context.Context, w http.ResponseWriter, name, format string) error {
	file, ok := ArtifactNames[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidArtifact, name)
	}
	if !ValidFormats[format] {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}

	comments, err := s.store.Read(file)
	if err != nil {
		return err
	}

	s.log.Info().Str("artifact", name).Str("format", format).Int("count", len(comments)).Msg("Streaming comments")

	switch format {
	case "ndjson":
		return s.streamNDJSON(ctx, w, name, comments)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+name+"_comments.csv")
		return artifact.EncodeCSV(w, comments)
	default:
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(comments)
	}
}

func (s *artifactService) streamNDJSON(ctx context.Context, w http.ResponseWriter, name string, comments []models.Comment) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename="+name+"_comments.ndjson")

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for i := range comments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(&comments[i]); err != nil {
			return err
		}

		// Flush every 100 records for streaming
		if (i+1)%100 == 0 && flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}

// Summary reports existence, size and record count of every artifact
func (s *artifactService) Summary(ctx context.Context) ([]models.ArtifactInfo, error) {
	infos := make([]models.ArtifactInfo, 0, len(artifactOrder))

	for _, name := range artifactOrder {
		file := ArtifactNames[name]
		info := models.ArtifactInfo{Name: name}

		stat, err := s.store.Stat(file)
		if errors.Is(err, artifact.ErrNotFound) {
			infos = append(infos, info)
			continue
		}
		if err != nil {
			return nil, err
		}

		info.Exists = true
		info.SizeBytes = stat.Size()
		modified := stat.ModTime().UTC()
		info.ModifiedAt = &modified

		comments, err := s.store.Read(file)
		if err != nil {
			s.log.Warn().Err(err).Str("artifact", name).Msg("Artifact unreadable")
			info.Records = -1
		} else {
			info.Records = len(comments)
		}

		infos = append(infos, info)
	}

	return infos, nil
}
