// internal/platform/platform.go

// Package platform defines the capability surface the narration core uses
// to talk to the chat platform. The core never imports a platform SDK
// directly; adapters (internal/platform/discord) implement these interfaces.
package platform

import (
	"context"
	"strings"
	"time"
)

// ChannelType mirrors the channel kinds the classifier distinguishes.
type ChannelType int

const (
	ChannelUnknown ChannelType = iota
	ChannelText
	ChannelAnnouncement
	ChannelPublicThread
	ChannelPrivateThread
	ChannelForum
	ChannelCategory
)

// Attachment is a file attached to a message.
type Attachment struct {
	URL         string
	ContentType string
}

// Message is an inbound platform message, flattened to what the pipeline
// needs. ParentID is the containing thread's parent or the channel's
// category; CategoryID is one level above that (threads inside a channel
// inside a country category).
type Message struct {
	ID          string
	GuildID     string
	GuildName   string
	ChannelID   string
	ChannelType ChannelType
	ParentID    string
	CategoryID  string

	AuthorID          string
	AuthorDisplayName string
	AuthorIsBot       bool
	AuthorIsAdmin     bool
	AuthorRoles       []string

	Content      string
	CleanContent string
	URL          string
	Timestamp    time.Time
	Attachments  []Attachment
	Mentions     []string
}

// MentionsUser reports whether the message mentions the given user id.
func (m Message) MentionsUser(userID string) bool {
	for _, id := range m.Mentions {
		if id == userID {
			return true
		}
	}
	return strings.Contains(m.Content, "<@"+userID+">")
}

// HasRole reports whether the author carries the given role id.
func (m Message) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range m.AuthorRoles {
		if id == roleID {
			return true
		}
	}
	return false
}

// ImageURLs returns the message's image attachments in arrival order.
func (m Message) ImageURLs() []string {
	var urls []string
	for _, a := range m.Attachments {
		if strings.HasPrefix(a.ContentType, "image") {
			urls = append(urls, a.URL)
		}
	}
	return urls
}

// Embed is a rich message card.
type Embed struct {
	Title        string
	Description  string
	ThumbnailURL string
	Color        int
	Timestamp    time.Time
}

// Platform is the outbound capability interface. Deletes are idempotent:
// deleting an already-gone message is not an error.
type Platform interface {
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	SendEmbed(ctx context.Context, channelID string, embed Embed) (messageID string, err error)
	Reply(ctx context.Context, channelID, messageID, content string) (replyID string, err error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	ClearReactions(ctx context.Context, channelID, messageID string) error
	SendTyping(ctx context.Context, channelID string) error
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)

	// War threads live in a forum channel; the starter message carries
	// the synopsis and is edited when the war changes.
	CreateForumThread(ctx context.Context, forumChannelID, title, body string) (threadID string, err error)
	EditThreadStarter(ctx context.Context, threadID, content string) error

	// SendWebhook posts as a named persona through a channel-level
	// webhook, creating the webhook on first use.
	SendWebhook(ctx context.Context, channelID, username, avatarURL, content string) error
}

// ChannelInfo describes a guild channel for the metadata API.
type ChannelInfo struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     ChannelType `json:"type"`
	ParentID string      `json:"parent_id,omitempty"`
	Position int         `json:"position"`
}

// RoleInfo describes a guild role for the metadata API.
type RoleInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    int    `json:"color"`
	Position int    `json:"position"`
}

// Directory exposes read-only guild metadata.
type Directory interface {
	GuildName(ctx context.Context, guildID string) (string, error)
	Channels(ctx context.Context, guildID string) ([]ChannelInfo, error)
	Roles(ctx context.Context, guildID string) ([]RoleInfo, error)
}
