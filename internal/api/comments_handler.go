package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/artifact"
	"github.com/youtube-comments-etl/internal/service"
)

// CommentsHandler serves the pipeline's artifacts
type CommentsHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCommentsHandler creates a new CommentsHandler
func NewCommentsHandler(services *service.Services, log zerolog.Logger) *CommentsHandler {
	return &CommentsHandler{
		services: services,
		log:      log.With().Str("handler", "comments").Logger(),
	}
}

// StreamComments handles GET /v1/comments?artifact=...&format=...
func (h *CommentsHandler) StreamComments(c *gin.Context) {
	ctx := c.Request.Context()

	name := c.DefaultQuery("artifact", "final")
	if _, ok := service.ArtifactNames[name]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "artifact must be one of: raw, cleaned, final"})
		return
	}

	format := c.DefaultQuery("format", "json")
	if !service.ValidFormats[format] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: json, ndjson, csv"})
		return
	}

	err := h.services.Artifact.StreamComments(ctx, c.Writer, name, format)
	if err == nil {
		return
	}

	// Can't return error JSON after streaming has started
	if c.Writer.Written() {
		h.log.Error().Err(err).Str("artifact", name).Msg("Comment stream interrupted")
		return
	}

	switch {
	case errors.Is(err, artifact.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "artifact " + name + " has not been produced yet"})
	case errors.Is(err, artifact.ErrMalformed):
		h.log.Error().Err(err).Str("artifact", name).Msg("Artifact unreadable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "artifact " + name + " is unreadable"})
	default:
		h.log.Error().Err(err).Str("artifact", name).Msg("Failed to stream comments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stream comments"})
	}
}

// GetStats handles GET /v1/stats
func (h *CommentsHandler) GetStats(c *gin.Context) {
	infos, err := h.services.Artifact.Summary(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarize artifacts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read artifacts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"artifacts": infos})
}
