// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salazarbot/salazar/internal/di"
	"github.com/salazarbot/salazar/internal/platform"
)

// SetupRouter builds the HTTP surface. Services come from the container;
// the router never constructs its own.
func SetupRouter(debug bool) (*gin.Engine, error) {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	container := di.GetContainer()

	directory, ok := container.Get("directory").(platform.Directory)
	if !ok {
		return nil, fmt.Errorf("platform directory not initialized")
	}
	hub, ok := container.Get("feed").(*FeedHub)
	if !ok {
		return nil, fmt.Errorf("feed hub not initialized")
	}

	handler := NewMetadataHandler(directory, hub)
	limiter := NewRateLimiter()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	r.GET("/api/health", handler.Health)
	r.GET("/api/stats", handler.Stats)

	guilds := r.Group("/api/guilds", limiter.Middleware(60, time.Minute))
	{
		guilds.GET("/:guildID/channels", handler.GetChannels)
		guilds.GET("/:guildID/roles", handler.GetRoles)
	}

	r.GET("/ws/feed", hub.HandleFeed)

	return r, nil
}
