// internal/services/classifier.go
package services

import (
	"strings"

	"github.com/salazarbot/salazar/internal/models"
	"github.com/salazarbot/salazar/internal/platform"
	"github.com/salazarbot/salazar/internal/utils"
)

// Category is the narration category a message classifies into.
type Category int

const (
	CategoryIgnore Category = iota
	CategorySecretAction
	CategoryAction
	CategoryEvent
	CategoryTimeAdvance
	CategoryDiplomacy
	CategoryContextHygiene
	CategoryQuestion
)

func (c Category) String() string {
	switch c {
	case CategorySecretAction:
		return "secret_action"
	case CategoryAction:
		return "action"
	case CategoryEvent:
		return "event"
	case CategoryTimeAdvance:
		return "time_advance"
	case CategoryDiplomacy:
		return "diplomacy"
	case CategoryContextHygiene:
		return "context_hygiene"
	case CategoryQuestion:
		return "question"
	default:
		return "ignore"
	}
}

// negationPhrase opts a long message out of narration. Compared against
// the diacritic-folded content, so "Não narrar" matches too.
const negationPhrase = "nao narr"

// CollectorState is the slice of collector the classifier consults.
type CollectorState interface {
	HasOpenWindow(guildID, channelID, authorID string, class WindowClass) bool
	InCooldown(guildID, authorID string) bool
}

// Classifier maps an inbound message plus guild configuration to one
// category. Rules run in fixed priority order; the first match wins.
type Classifier struct {
	botUserID string
	state     CollectorState
}

// NewClassifier creates a classifier. botUserID is the bot's own user id
// for the mention rule.
func NewClassifier(botUserID string, state CollectorState) *Classifier {
	return &Classifier{botUserID: botUserID, state: state}
}

// Classify decides the message's category. Bot authors are always ignored.
func (cl *Classifier) Classify(msg *platform.Message, cfg *models.GuildConfig) Category {
	if msg == nil || cfg == nil || msg.AuthorIsBot {
		return CategoryIgnore
	}

	folded := utils.Simplify(msg.Content)

	switch {
	case cl.isSecretAction(msg, cfg):
		return CategorySecretAction
	case cl.isAction(msg, cfg, folded):
		return CategoryAction
	case cl.isEvent(msg, cfg):
		return CategoryEvent
	case contains(cfg.Channels.Time, msg.ChannelID):
		return CategoryTimeAdvance
	case cl.isDiplomacy(msg, cfg, folded):
		return CategoryDiplomacy
	case cl.isContextHygiene(msg, cfg):
		return CategoryContextHygiene
	case cl.isQuestion(msg, cfg):
		return CategoryQuestion
	default:
		return CategoryIgnore
	}
}

func (cl *Classifier) isSecretAction(msg *platform.Message, cfg *models.GuildConfig) bool {
	return cfg.Roles.Player != "" &&
		msg.HasRole(cfg.Roles.Player) &&
		contains(cfg.Channels.SecretActions, msg.ChannelID)
}

func (cl *Classifier) isAction(msg *platform.Message, cfg *models.GuildConfig, folded string) bool {
	if !inActionChannel(msg, cfg) {
		return false
	}
	if msg.ChannelType != platform.ChannelText && msg.ChannelType != platform.ChannelPublicThread {
		return false
	}

	long := len([]rune(msg.Content)) >= cfg.Preferences.ActionLength()
	keyword := strings.Contains(folded, utils.Simplify(cfg.Preferences.Keyword()))
	if !long && !keyword {
		return false
	}
	if strings.Contains(folded, negationPhrase) {
		return false
	}
	return !cl.state.HasOpenWindow(msg.GuildID, msg.ChannelID, msg.AuthorID, WindowAction)
}

func (cl *Classifier) isEvent(msg *platform.Message, cfg *models.GuildConfig) bool {
	if !contains(cfg.Channels.Events, msg.ChannelID) && !contains(cfg.Channels.Events, msg.ParentID) {
		return false
	}
	switch msg.ChannelType {
	case platform.ChannelText, platform.ChannelAnnouncement, platform.ChannelPublicThread:
	default:
		return false
	}
	if len([]rune(msg.Content)) < cfg.Preferences.EventLength() {
		return false
	}
	return !cl.state.HasOpenWindow(msg.GuildID, msg.ChannelID, msg.AuthorID, WindowEvent)
}

func (cl *Classifier) isDiplomacy(msg *platform.Message, cfg *models.GuildConfig, folded string) bool {
	if !contains(cfg.Channels.Diplomacy, msg.ChannelID) {
		return false
	}
	long := len([]rune(msg.Content)) >= cfg.Preferences.DiplomacyLength()
	keyword := strings.Contains(folded, utils.Simplify(cfg.Preferences.Keyword()))
	return long || keyword
}

// isContextHygiene flags context-channel messages missing the required
// markdown: a heading or bold title, plus a "-#" subtext line. A message
// with neither title style, or without the subtext, gets deleted.
func (cl *Classifier) isContextHygiene(msg *platform.Message, cfg *models.GuildConfig) bool {
	if !contains(cfg.Channels.Context, msg.ChannelID) && !contains(cfg.Channels.Context, msg.ParentID) {
		return false
	}
	heading := strings.Contains(msg.Content, "###")
	bold := strings.Contains(msg.Content, "**")
	subtext := strings.Contains(msg.Content, "-#")
	return (!heading && !bold) || !subtext
}

func (cl *Classifier) isQuestion(msg *platform.Message, cfg *models.GuildConfig) bool {
	if cl.botUserID == "" || !msg.MentionsUser(cl.botUserID) {
		return false
	}
	if cfg.Tier < models.TierNarration || !cfg.Preferences.GlobalAnswers {
		return false
	}
	return !cl.state.InCooldown(msg.GuildID, msg.AuthorID)
}

// inActionChannel matches the action channels, threads under them, and
// channels inside a country category.
func inActionChannel(msg *platform.Message, cfg *models.GuildConfig) bool {
	return contains(cfg.Channels.Actions, msg.ChannelID) ||
		contains(cfg.Channels.Actions, msg.ParentID) ||
		contains(cfg.Channels.CountryCategories, msg.CategoryID)
}

func contains(list []string, id string) bool {
	if id == "" {
		return false
	}
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
