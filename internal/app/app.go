// internal/app/app.go

// Package app owns service construction order and lifecycle.
package app

import (
	"fmt"

	"github.com/salazarbot/salazar/internal/api"
	"github.com/salazarbot/salazar/internal/config"
	"github.com/salazarbot/salazar/internal/di"
	"github.com/salazarbot/salazar/internal/llm"
	_ "github.com/salazarbot/salazar/internal/llm/providers/google"
	_ "github.com/salazarbot/salazar/internal/llm/providers/openrouter"
	"github.com/salazarbot/salazar/internal/platform/discord"
	"github.com/salazarbot/salazar/internal/services"
	"github.com/salazarbot/salazar/internal/storage"
	"github.com/salazarbot/salazar/internal/utils"
)

// App holds the wired application.
type App struct {
	Config  *config.Config
	DB      *storage.DB
	Adapter *discord.Adapter

	narrator *services.NarratorService
	logger   *utils.Logger
}

// Initialize builds every service in dependency order and registers the
// shared ones in the container.
func Initialize(cfg *config.Config) (*App, error) {
	if err := utils.InitLogger(cfg.LogDir + "/salazar.log"); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger := utils.GetLogger()

	fileStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}

	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	guilds := services.NewGuildService(fileStorage)
	world := services.NewContextService(db)

	var provider llm.Provider
	if cfg.LLMAPIKey != "" {
		provider, err = llm.GetProvider(cfg.LLMProvider, map[string]string{
			"api_key": cfg.LLMAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init LLM provider %q: %w", cfg.LLMProvider, err)
		}
	} else {
		logger.Warn("No LLM API key configured, narration disabled", nil)
	}
	gateway := services.NewGatewayService(provider, cfg.Models)

	adapter, err := discord.New(cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("init discord adapter: %w", err)
	}

	feed := api.NewFeedHub()
	narrator := services.NewNarratorService(
		adapter, guilds, world, gateway,
		services.NewImageSearchService(), cfg, feed)
	narrator.SetMaintenance(cfg.Maintenance)

	adapter.OnReady(narrator.SetBotUser)
	adapter.OnMessage(narrator.HandleMessage)

	container := di.GetContainer()
	container.Register("config", cfg)
	container.Register("storage", fileStorage)
	container.Register("db", db)
	container.Register("guilds", guilds)
	container.Register("world", world)
	container.Register("gateway", gateway)
	container.Register("narrator", narrator)
	container.Register("directory", adapter)
	container.Register("feed", feed)

	return &App{
		Config:   cfg,
		DB:       db,
		Adapter:  adapter,
		narrator: narrator,
		logger:   logger,
	}, nil
}

// Start opens the gateway connection.
func (a *App) Start() error {
	if a.Config.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is not set")
	}
	return a.Adapter.Open()
}

// Shutdown releases external resources.
func (a *App) Shutdown() {
	if err := a.Adapter.Close(); err != nil {
		a.logger.Warn("Discord close failed", map[string]interface{}{"error": err.Error()})
	}
	if err := a.DB.Close(); err != nil {
		a.logger.Warn("Database close failed", map[string]interface{}{"error": err.Error()})
	}
	a.logger.Close()
}
