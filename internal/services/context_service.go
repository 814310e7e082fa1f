// internal/services/context_service.go
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/salazarbot/salazar/internal/errors"
	"github.com/salazarbot/salazar/internal/models"
	"github.com/salazarbot/salazar/internal/storage"
	"github.com/salazarbot/salazar/internal/utils"
)

// ContextService owns the per-guild roleplay world state: the in-game
// date, registered players, wars and the running context log that feeds
// the narration prompts.
type ContextService struct {
	db      *storage.DB
	logger  *utils.Logger
	metrics *utils.MetricsCollector
}

// NewContextService creates a context service over the given database.
func NewContextService(db *storage.DB) *ContextService {
	return &ContextService{
		db:      db,
		logger:  utils.GetLogger(),
		metrics: utils.GetMetricsCollector(),
	}
}

// CurrentDate returns the guild's in-game date, empty if never set.
// The column is deliberately not named current_date: that is a reserved
// SQLite keyword that resolves to the builtin calendar date.
func (s *ContextService) CurrentDate(ctx context.Context, guildID string) (string, error) {
	var date string
	err := s.db.Conn().GetContext(ctx, &date,
		`SELECT roleplay_date FROM guild_state WHERE guild_id = ?`, guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.WrapError(err, "failed to load current date", apperrors.ErrorTypeError)
	}
	return date, nil
}

// SetCurrentDate stores the guild's in-game date.
func (s *ContextService) SetCurrentDate(ctx context.Context, guildID, date string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO guild_state (guild_id, roleplay_date, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(guild_id) DO UPDATE SET roleplay_date = excluded.roleplay_date, updated_at = CURRENT_TIMESTAMP`,
		guildID, date)
	if err != nil {
		return apperrors.WrapError(err, "failed to store current date", apperrors.ErrorTypeError)
	}
	return nil
}

// AdvanceToYear rewrites the year in the guild's in-game date to the
// target year. The stored date carries the year as its trailing number;
// the surrounding prose is preserved. Returns the new date and the year
// it replaced, or an empty date when none is stored or no year can be
// found in it.
func (s *ContextService) AdvanceToYear(ctx context.Context, guildID string, target int) (string, int, error) {
	current, err := s.CurrentDate(ctx, guildID)
	if err != nil {
		return "", 0, err
	}

	next, from := setYear(current, target)
	if next == "" {
		return "", 0, nil
	}
	if err := s.SetCurrentDate(ctx, guildID, next); err != nil {
		return "", 0, err
	}
	return next, from, nil
}

// setYear replaces the last run of digits in date with year. Returns the
// rewritten date and the year it replaced, "" when no number is found.
func setYear(date string, year int) (string, int) {
	if date == "" {
		return "", 0
	}
	end := -1
	for i := len(date) - 1; i >= 0; i-- {
		if date[i] >= '0' && date[i] <= '9' {
			end = i + 1
			break
		}
	}
	if end < 0 {
		return "", 0
	}
	start := end
	for start > 0 && date[start-1] >= '0' && date[start-1] <= '9' {
		start--
	}
	var from int
	fmt.Sscanf(date[start:end], "%d", &from)
	return fmt.Sprintf("%s%d%s", date[:start], year, date[end:]), from
}

// UpsertPlayer records or updates a player's country assignment.
func (s *ContextService) UpsertPlayer(ctx context.Context, p *models.Player) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO players (guild_id, user_id, display_name, country) VALUES (?, ?, ?, ?)
		 ON CONFLICT(guild_id, user_id) DO UPDATE SET display_name = excluded.display_name, country = excluded.country`,
		p.GuildID, p.UserID, p.DisplayName, p.Country)
	if err != nil {
		return apperrors.WrapError(err, "failed to store player", apperrors.ErrorTypeError)
	}
	return nil
}

// AllPlayers lists every registered player of a guild.
func (s *ContextService) AllPlayers(ctx context.Context, guildID string) ([]*models.Player, error) {
	var players []*models.Player
	err := s.db.Conn().SelectContext(ctx, &players,
		`SELECT guild_id, user_id, display_name, country FROM players WHERE guild_id = ? ORDER BY display_name`,
		guildID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list players", apperrors.ErrorTypeError)
	}
	return players, nil
}

// PlayerCountries renders the player roster as prompt-ready lines.
func (s *ContextService) PlayerCountries(ctx context.Context, guildID string) (string, error) {
	players, err := s.AllPlayers(ctx, guildID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range players {
		if p.Country == "" {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s\n", p.DisplayName, p.Country)
	}
	return sb.String(), nil
}

// RecordWar inserts a new war and returns it with its assigned ID.
func (s *ContextService) RecordWar(ctx context.Context, war *models.War) (*models.War, error) {
	now := time.Now()
	res, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO wars (guild_id, thread_id, title, synopsis, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		war.GuildID, war.ThreadID, war.Title, war.Synopsis, now, now)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to record war", apperrors.ErrorTypeError)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read war id", apperrors.ErrorTypeError)
	}
	war.ID = id
	war.Active = true
	war.CreatedAt = now
	war.UpdatedAt = now
	return war, nil
}

// SetWarThread stores the forum thread backing a war.
func (s *ContextService) SetWarThread(ctx context.Context, guildID string, id int64, threadID string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`UPDATE wars SET thread_id = ?, updated_at = CURRENT_TIMESTAMP WHERE guild_id = ? AND id = ?`,
		threadID, guildID, id)
	if err != nil {
		return apperrors.WrapError(err, "failed to store war thread", apperrors.ErrorTypeError)
	}
	return nil
}

// WarByID loads a war by its numeric ID, nil when absent.
func (s *ContextService) WarByID(ctx context.Context, guildID string, id int64) (*models.War, error) {
	var war models.War
	err := s.db.Conn().GetContext(ctx, &war,
		`SELECT id, guild_id, thread_id, title, synopsis, active, created_at, updated_at
		 FROM wars WHERE guild_id = ? AND id = ?`, guildID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to load war", apperrors.ErrorTypeError)
	}
	return &war, nil
}

// ActiveWars lists the guild's ongoing wars.
func (s *ContextService) ActiveWars(ctx context.Context, guildID string) ([]*models.War, error) {
	var wars []*models.War
	err := s.db.Conn().SelectContext(ctx, &wars,
		`SELECT id, guild_id, thread_id, title, synopsis, active, created_at, updated_at
		 FROM wars WHERE guild_id = ? AND active = 1 ORDER BY created_at`, guildID)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list wars", apperrors.ErrorTypeError)
	}
	return wars, nil
}

// WarSummaries renders the active wars as prompt-ready lines.
func (s *ContextService) WarSummaries(ctx context.Context, guildID string) (string, error) {
	wars, err := s.ActiveWars(ctx, guildID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, w := range wars {
		fmt.Fprintf(&sb, "- [%d] %s: %s\n", w.ID, w.Title, w.Synopsis)
	}
	return sb.String(), nil
}

// UpdateWarSynopsis replaces a war's synopsis. Returns the updated war,
// or nil when the war does not exist.
func (s *ContextService) UpdateWarSynopsis(ctx context.Context, guildID string, id int64, synopsis string) (*models.War, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		`UPDATE wars SET synopsis = ?, updated_at = CURRENT_TIMESTAMP WHERE guild_id = ? AND id = ?`,
		synopsis, guildID, id)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to update war synopsis", apperrors.ErrorTypeError)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.WarByID(ctx, guildID, id)
}

// AppendContext adds an entry to the guild's context log. Blank content
// is ignored and returns a nil entry.
func (s *ContextService) AppendContext(ctx context.Context, guildID, content string) (*models.ContextEntry, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	entry := &models.ContextEntry{
		ID:        uuid.New().String(),
		GuildID:   guildID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Conn().ExecContext(ctx,
		`INSERT INTO context_entries (id, guild_id, content, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.GuildID, entry.Content, entry.CreatedAt)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to append context", apperrors.ErrorTypeError)
	}

	s.metrics.IncrementCounter(utils.MetricContextAppends)
	s.logger.Debug("Context entry appended", map[string]interface{}{
		"guild_id": guildID,
		"entry_id": entry.ID,
	})
	return entry, nil
}

// ContextLog renders the context log oldest-first, one entry per line.
func (s *ContextService) ContextLog(ctx context.Context, guildID string) (string, error) {
	var contents []string
	err := s.db.Conn().SelectContext(ctx, &contents,
		`SELECT content FROM context_entries WHERE guild_id = ? ORDER BY rowid`, guildID)
	if err != nil {
		return "", apperrors.WrapError(err, "failed to load context log", apperrors.ErrorTypeError)
	}
	return strings.Join(contents, "\n"), nil
}
