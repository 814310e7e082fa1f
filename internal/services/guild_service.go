// internal/services/guild_service.go
package services

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/salazarbot/salazar/internal/errors"
	"github.com/salazarbot/salazar/internal/models"
	"github.com/salazarbot/salazar/internal/storage"
	"github.com/salazarbot/salazar/internal/utils"
)

const (
	guildConfigFile = "config.json"
	guildSetupFile  = "setup.json"
)

// GuildService loads and stores per-guild configuration. Configs are JSON
// files under guilds/<id>/ and cached in memory; the pipeline reads them
// on every message, so lookups must stay cheap.
type GuildService struct {
	storage *storage.FileStorage
	logger  *utils.Logger

	mu    sync.RWMutex
	cache map[string]*models.GuildConfig
}

// NewGuildService creates a guild service over the given file storage.
func NewGuildService(fs *storage.FileStorage) *GuildService {
	return &GuildService{
		storage: fs,
		logger:  utils.GetLogger(),
		cache:   make(map[string]*models.GuildConfig),
	}
}

func guildDir(guildID string) string {
	return fmt.Sprintf("guilds/%s", guildID)
}

// Config returns the guild's configuration, or nil when the guild was
// never configured. A nil config leaves the pipeline inert for the guild.
func (s *GuildService) Config(guildID string) (*models.GuildConfig, error) {
	s.mu.RLock()
	if cfg, ok := s.cache[guildID]; ok {
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	if !s.storage.FileExists(guildDir(guildID), guildConfigFile) {
		return nil, nil
	}

	var cfg models.GuildConfig
	if err := s.storage.LoadJSONFile(guildDir(guildID), guildConfigFile, &cfg); err != nil {
		return nil, apperrors.WrapError(err, "failed to load guild config", apperrors.ErrorTypeError)
	}

	s.mu.Lock()
	s.cache[guildID] = &cfg
	s.mu.Unlock()
	return &cfg, nil
}

// SaveConfig persists a guild configuration and refreshes the cache.
func (s *GuildService) SaveConfig(cfg *models.GuildConfig) error {
	if cfg == nil || cfg.GuildID == "" {
		return apperrors.NewValidationError("guild config requires a guild id", nil)
	}
	cfg.UpdatedAt = time.Now()

	if err := s.storage.SaveJSONFile(guildDir(cfg.GuildID), guildConfigFile, cfg); err != nil {
		return apperrors.WrapError(err, "failed to save guild config", apperrors.ErrorTypeError)
	}

	s.mu.Lock()
	s.cache[cfg.GuildID] = cfg
	s.mu.Unlock()

	s.logger.Info("Guild config saved", map[string]interface{}{
		"guild_id": cfg.GuildID,
		"tier":     cfg.Tier,
	})
	return nil
}

// Setup returns the guild's pending setup state, nil when none exists.
func (s *GuildService) Setup(guildID string) (*models.SetupState, error) {
	if !s.storage.FileExists(guildDir(guildID), guildSetupFile) {
		return nil, nil
	}
	var state models.SetupState
	if err := s.storage.LoadJSONFile(guildDir(guildID), guildSetupFile, &state); err != nil {
		return nil, apperrors.WrapError(err, "failed to load setup state", apperrors.ErrorTypeError)
	}
	return &state, nil
}

// SaveSetup persists a setup state.
func (s *GuildService) SaveSetup(state *models.SetupState) error {
	if state == nil || state.GuildID == "" {
		return apperrors.NewValidationError("setup state requires a guild id", nil)
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now()
	}
	if err := s.storage.SaveJSONFile(guildDir(state.GuildID), guildSetupFile, state); err != nil {
		return apperrors.WrapError(err, "failed to save setup state", apperrors.ErrorTypeError)
	}
	return nil
}

// ClearSetup removes a guild's setup state once configuration completes.
func (s *GuildService) ClearSetup(guildID string) error {
	return s.storage.DeleteFile(guildDir(guildID), guildSetupFile)
}

// GuildIDs lists every guild that has stored state.
func (s *GuildService) GuildIDs() ([]string, error) {
	return s.storage.ListDirs("guilds")
}

// Invalidate drops the cached config for a guild.
func (s *GuildService) Invalidate(guildID string) {
	s.mu.Lock()
	delete(s.cache, guildID)
	s.mu.Unlock()
}
