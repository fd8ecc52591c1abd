package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/youtube-comments-etl/internal/models"
	"github.com/youtube-comments-etl/internal/service"
)

// RunsHandler handles pipeline run endpoints
type RunsHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewRunsHandler creates a new RunsHandler
func NewRunsHandler(services *service.Services, log zerolog.Logger) *RunsHandler {
	return &RunsHandler{
		services: services,
		log:      log.With().Str("handler", "runs").Logger(),
	}
}

// CreateRun handles POST /v1/runs
// Queues a manual run; the run processor picks it up asynchronously
func (h *RunsHandler) CreateRun(c *gin.Context) {
	ctx := c.Request.Context()

	run, err := h.services.Run.TriggerRun(ctx, models.TriggerManual)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to queue run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":     run.ID,
		"status":     run.Status,
		"trigger":    run.Trigger,
		"video_id":   run.VideoID,
		"created_at": run.CreatedAt,
		"status_url": "/v1/runs/" + run.ID,
	})
}

// ListRuns handles GET /v1/runs?limit=N
func (h *RunsHandler) ListRuns(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := h.services.Run.ListRuns(ctx, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /v1/runs/:run_id
func (h *RunsHandler) GetRun(c *gin.Context) {
	ctx := c.Request.Context()
	runID := c.Param("run_id")

	if _, err := uuid.Parse(runID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run_id must be a UUID"})
		return
	}

	run, err := h.services.Run.GetRun(ctx, runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run status"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}
