package api

import (
	"errors"
	"net/http"

	"github.com/autoblog-publisher/internal/config"
	"github.com/autoblog-publisher/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// PostHandler handles the read and republish endpoints
type PostHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *PostHandler {
	return &PostHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "post").Logger(),
	}
}

// ListPosts handles GET /posts
func (h *PostHandler) ListPosts(c *gin.Context) {
	items, err := h.services.Post.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list posts")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read posts from the content store"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetPost handles GET /posts/:id
func (h *PostHandler) GetPost(c *gin.Context) {
	slug := c.Param("id")

	post, err := h.services.Post.Get(c.Request.Context(), slug)
	if errors.Is(err, service.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("Failed to get post")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read post from the content store"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// Republish handles POST /posts/:id/republish
func (h *PostHandler) Republish(c *gin.Context) {
	slug := c.Param("id")

	ctx, cancel := contextWithTimeout(c, runWaitTimeout(h.cfg))
	defer cancel()

	result, err := h.services.Publish.Republish(ctx, slug)
	if err != nil {
		writeRunError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, newRunResponse(result))
}
