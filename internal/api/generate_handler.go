package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/models"
	"github.com/autoblog-publisher/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GenerateHandler handles the on-demand trigger
type GenerateHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *GenerateHandler {
	return &GenerateHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "generate").Logger(),
	}
}

// runResponse is the success body of a run
type runResponse struct {
	RunID         string          `json:"run_id"`
	Slug          string          `json:"slug"`
	Title         string          `json:"title"`
	State         models.RunState `json:"state"`
	TitleAttempts int             `json:"title_attempts"`
	Shared        bool            `json:"shared"`
	DurationMs    int64           `json:"duration_ms"`
	Post          *models.Post    `json:"post"`
}

func newRunResponse(result *models.RunResult) runResponse {
	resp := runResponse{
		RunID:         result.RunID,
		Slug:          result.Slug,
		State:         result.State,
		TitleAttempts: result.TitleAttempts,
		Shared:        result.Shared,
		DurationMs:    result.DurationMs,
		Post:          result.Post,
	}
	if result.Post != nil {
		resp.Title = result.Post.Title
	}
	return resp
}

// Generate handles GET and POST /generate. The run executes synchronously;
// POST accepts {"topic": "..."} to steer it.
func (h *GenerateHandler) Generate(c *gin.Context) {
	req := models.RunRequest{Trigger: models.TriggerHTTP}
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		req.Trigger = models.TriggerHTTP
	}

	ctx, cancel := contextWithTimeout(c, runWaitTimeout(h.cfg))
	defer cancel()

	result, err := h.services.Publish.Run(ctx, req)
	if err != nil {
		writeRunError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newRunResponse(result))
}

// runWaitTimeout bounds how long a request waits on a run
func runWaitTimeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Publish.RunTimeout <= 0 {
		return 0
	}
	return cfg.Publish.RunTimeout + config.RunWaitSlack
}

// writeRunError maps run failures onto HTTP responses
func writeRunError(c *gin.Context, log zerolog.Logger, err error) {
	var runErr *service.RunError
	switch {
	case errors.As(err, &runErr):
		log.Error().Err(runErr.Cause).Str("run_id", runErr.RunID).Str("reason", string(runErr.Reason)).Msg("Run failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  runErr.Reason,
			"cause":  runErr.Cause.Error(),
			"run_id": runErr.RunID,
		})
	case errors.Is(err, service.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	case errors.Is(err, service.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service is shutting down"})
	case errors.Is(err, context.DeadlineExceeded):
		// the run keeps going in the background
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": models.ReasonTimeout, "cause": "timed out waiting for the run to finish"})
	default:
		log.Error().Err(err).Msg("Run request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "cause": err.Error()})
	}
}
