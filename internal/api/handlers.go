// internal/api/handlers.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salazarbot/salazar/internal/platform"
	"github.com/salazarbot/salazar/internal/utils"
)

// MetadataHandler serves the read-only guild metadata endpoints used by
// the setup dashboard: channel and role listings plus health and stats.
type MetadataHandler struct {
	directory platform.Directory
	hub       *FeedHub
	responses *ResponseHelper
	startedAt time.Time
}

// NewMetadataHandler creates the handler set.
func NewMetadataHandler(directory platform.Directory, hub *FeedHub) *MetadataHandler {
	return &MetadataHandler{
		directory: directory,
		hub:       hub,
		responses: NewResponseHelper(),
		startedAt: time.Now(),
	}
}

// GetChannels lists a guild's channels.
func (h *MetadataHandler) GetChannels(c *gin.Context) {
	guildID := c.Param("guildID")
	if guildID == "" {
		h.responses.BadRequest(c, "guild id is required")
		return
	}

	channels, err := h.directory.Channels(c.Request.Context(), guildID)
	if err != nil {
		h.responses.NotFound(c, "guild not found")
		return
	}
	h.responses.Success(c, gin.H{"guild_id": guildID, "channels": channels})
}

// GetRoles lists a guild's roles.
func (h *MetadataHandler) GetRoles(c *gin.Context) {
	guildID := c.Param("guildID")
	if guildID == "" {
		h.responses.BadRequest(c, "guild id is required")
		return
	}

	roles, err := h.directory.Roles(c.Request.Context(), guildID)
	if err != nil {
		h.responses.NotFound(c, "guild not found")
		return
	}
	h.responses.Success(c, gin.H{"guild_id": guildID, "roles": roles})
}

// Health is the liveness endpoint.
func (h *MetadataHandler) Health(c *gin.Context) {
	h.responses.Success(c, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Stats exposes the pipeline counters and gauges.
func (h *MetadataHandler) Stats(c *gin.Context) {
	data := utils.GetMetricsCollector().GetMetrics()
	if h.hub != nil {
		data["feed_clients"] = h.hub.ClientCount()
	}
	h.responses.Success(c, data)
}
