// internal/models/guild.go
package models

import "time"

// Service tiers. Narration requires at least TierNarration.
const (
	TierFree      = 0
	TierBasic     = 1
	TierNarration = 2
)

// Default preferences applied when a guild leaves a field unset.
const (
	DefaultMinActionLength     = 500
	DefaultMinEventLength      = 256
	DefaultMinDiplomacyLength  = 200
	DefaultActionWindowSeconds = 20
	DefaultActionKeyword       = "acao"
)

// GuildConfig is the per-guild roleplay configuration. It is owned by the
// config store and read-only to the narration pipeline.
type GuildConfig struct {
	GuildID     string           `json:"guild_id"`
	Tier        int              `json:"tier"`
	SetupStep   int              `json:"setup_step"`
	Channels    GuildChannels    `json:"channels"`
	Roles       GuildRoles       `json:"roles"`
	Preferences GuildPreferences `json:"preferences"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// GuildChannels maps roleplay roles onto platform channel ids.
type GuildChannels struct {
	Actions           []string `json:"actions"`
	Events            []string `json:"events"`
	Diplomacy         []string `json:"diplomacy"`
	Time              []string `json:"time"`
	Context           []string `json:"context"`
	SecretActions     []string `json:"secret_actions"`
	CountryCategories []string `json:"country_categories"`
	Narrations        string   `json:"narrations"`
	WarForum          string   `json:"war_forum"`
	SecretActionsLog  string   `json:"secret_actions_log"`
}

// GuildRoles holds the role ids the pipeline cares about.
type GuildRoles struct {
	Player string `json:"player"`
}

// GuildPreferences are the guild's numeric and textual tuning knobs.
type GuildPreferences struct {
	MinActionLength     int    `json:"min_action_length"`
	MinEventLength      int    `json:"min_event_length"`
	MinDiplomacyLength  int    `json:"min_diplomacy_length"`
	ActionWindowSeconds int    `json:"action_window_seconds"`
	ActionKeyword       string `json:"action_keyword"`
	ExtraPrompt         string `json:"extra_prompt"`
	GlobalAnswers       bool   `json:"global_answers"`
}

// NarrationEnabled reports whether the narration pipeline is active for
// this guild. Tier <= 1 or an unfinished setup flow leaves it inert.
func (c *GuildConfig) NarrationEnabled() bool {
	return c != nil && c.Tier >= TierNarration
}

// ActionWindow returns the configured collection window duration in
// seconds, falling back to the default.
func (p GuildPreferences) ActionWindow() int {
	if p.ActionWindowSeconds > 0 {
		return p.ActionWindowSeconds
	}
	return DefaultActionWindowSeconds
}

// ActionLength returns the minimum action length, falling back to the default.
func (p GuildPreferences) ActionLength() int {
	if p.MinActionLength > 0 {
		return p.MinActionLength
	}
	return DefaultMinActionLength
}

// EventLength returns the minimum event length, falling back to the default.
func (p GuildPreferences) EventLength() int {
	if p.MinEventLength > 0 {
		return p.MinEventLength
	}
	return DefaultMinEventLength
}

// DiplomacyLength returns the minimum diplomacy length, falling back to the default.
func (p GuildPreferences) DiplomacyLength() int {
	if p.MinDiplomacyLength > 0 {
		return p.MinDiplomacyLength
	}
	return DefaultMinDiplomacyLength
}

// Keyword returns the configured action keyword, falling back to the default.
func (p GuildPreferences) Keyword() string {
	if p.ActionKeyword != "" {
		return p.ActionKeyword
	}
	return DefaultActionKeyword
}

// SetupState tracks a guild that has been paid for but not fully
// configured yet. A guild with a SetupState and no GuildConfig is mid-setup.
type SetupState struct {
	GuildID   string    `json:"guild_id"`
	Tier      int       `json:"tier"`
	SetupStep int       `json:"setup_step"`
	CreatedAt time.Time `json:"created_at"`
}
