// internal/platform/discord/discord.go

// Package discord adapts a discordgo session to the platform interfaces
// the narration core consumes.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/salazarbot/salazar/internal/platform"
	"github.com/salazarbot/salazar/internal/utils"
)

const webhookName = "Salazar"

// Adapter implements platform.Platform and platform.Directory over a
// discordgo session.
type Adapter struct {
	session *discordgo.Session
	logger  *utils.Logger

	webhookMu sync.Mutex
	webhooks  map[string]*discordgo.Webhook // channelID -> webhook
}

// New creates an adapter with the gateway intents the pipeline needs.
func New(token string) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	session.State.MaxMessageCount = 200

	return &Adapter{
		session:  session,
		logger:   utils.GetLogger(),
		webhooks: make(map[string]*discordgo.Webhook),
	}, nil
}

// Session exposes the underlying session for handler registration.
func (a *Adapter) Session() *discordgo.Session {
	return a.session
}

// Open connects to the gateway.
func (a *Adapter) Open() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	return nil
}

// Close shuts the gateway connection down.
func (a *Adapter) Close() error {
	return a.session.Close()
}

// BotUserID returns the connected bot's user id, empty before Ready.
func (a *Adapter) BotUserID() string {
	if a.session.State != nil && a.session.State.User != nil {
		return a.session.State.User.ID
	}
	return ""
}

// OnMessage registers a handler for inbound guild messages, converted to
// the platform shape. Each message runs on its own goroutine.
func (a *Adapter) OnMessage(handler func(context.Context, *platform.Message)) {
	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.GuildID == "" || m.Author == nil {
			return
		}
		msg := a.convertMessage(s, m)
		go handler(context.Background(), msg)
	})
}

// OnReady registers a handler for the gateway Ready event.
func (a *Adapter) OnReady(handler func(botUserID string)) {
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.logger.Info("Discord gateway ready", map[string]interface{}{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		})
		handler(r.User.ID)
	})
}

// convertMessage flattens a discordgo message into the pipeline shape,
// resolving the channel's parent and category from session state.
func (a *Adapter) convertMessage(s *discordgo.Session, m *discordgo.MessageCreate) *platform.Message {
	msg := &platform.Message{
		ID:           m.ID,
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		AuthorID:     m.Author.ID,
		AuthorIsBot:  m.Author.Bot,
		Content:      m.Content,
		CleanContent: m.ContentWithMentionsReplaced(),
		URL: fmt.Sprintf("https://discord.com/channels/%s/%s/%s",
			m.GuildID, m.ChannelID, m.ID),
	}

	msg.Timestamp = m.Timestamp

	msg.AuthorDisplayName = m.Author.Username
	if m.Author.GlobalName != "" {
		msg.AuthorDisplayName = m.Author.GlobalName
	}
	if m.Member != nil {
		if m.Member.Nick != "" {
			msg.AuthorDisplayName = m.Member.Nick
		}
		msg.AuthorRoles = m.Member.Roles
	}

	if guild, err := s.State.Guild(m.GuildID); err == nil && guild != nil {
		msg.GuildName = guild.Name
	}

	if perms, err := s.State.MessagePermissions(m.Message); err == nil {
		msg.AuthorIsAdmin = perms&discordgo.PermissionAdministrator != 0
	}

	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, platform.Attachment{
			URL:         att.URL,
			ContentType: att.ContentType,
		})
	}
	for _, u := range m.Mentions {
		msg.Mentions = append(msg.Mentions, u.ID)
	}

	if ch := a.channel(m.ChannelID); ch != nil {
		msg.ChannelType = convertChannelType(ch.Type)
		msg.ParentID = ch.ParentID
		msg.CategoryID = ch.ParentID
		if isThread(ch.Type) {
			if parent := a.channel(ch.ParentID); parent != nil {
				msg.CategoryID = parent.ParentID
			}
		}
	}

	return msg
}

func (a *Adapter) channel(channelID string) *discordgo.Channel {
	if channelID == "" {
		return nil
	}
	if ch, err := a.session.State.Channel(channelID); err == nil {
		return ch
	}
	ch, err := a.session.Channel(channelID)
	if err != nil {
		return nil
	}
	return ch
}

func isThread(t discordgo.ChannelType) bool {
	return t == discordgo.ChannelTypeGuildPublicThread ||
		t == discordgo.ChannelTypeGuildPrivateThread ||
		t == discordgo.ChannelTypeGuildNewsThread
}

func convertChannelType(t discordgo.ChannelType) platform.ChannelType {
	switch t {
	case discordgo.ChannelTypeGuildText:
		return platform.ChannelText
	case discordgo.ChannelTypeGuildNews:
		return platform.ChannelAnnouncement
	case discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildNewsThread:
		return platform.ChannelPublicThread
	case discordgo.ChannelTypeGuildPrivateThread:
		return platform.ChannelPrivateThread
	case discordgo.ChannelTypeGuildForum:
		return platform.ChannelForum
	case discordgo.ChannelTypeGuildCategory:
		return platform.ChannelCategory
	default:
		return platform.ChannelUnknown
	}
}

// ---- platform.Platform ----

func (a *Adapter) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := a.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (a *Adapter) SendEmbed(ctx context.Context, channelID string, embed platform.Embed) (string, error) {
	e := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	if embed.ThumbnailURL != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: embed.ThumbnailURL}
	}
	if !embed.Timestamp.IsZero() {
		e.Timestamp = embed.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	}

	msg, err := a.session.ChannelMessageSendEmbed(channelID, e, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (a *Adapter) Reply(ctx context.Context, channelID, messageID, content string) (string, error) {
	msg, err := a.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
		MessageID: messageID,
		ChannelID: channelID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (a *Adapter) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := a.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return err
}

// DeleteMessage removes a message. A message that is already gone is
// treated as deleted.
func (a *Adapter) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return nil
	}
	return err
}

func (a *Adapter) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return a.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
}

func (a *Adapter) ClearReactions(ctx context.Context, channelID, messageID string) error {
	err := a.session.MessageReactionsRemoveAll(channelID, messageID, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return nil
	}
	return err
}

func (a *Adapter) SendTyping(ctx context.Context, channelID string) error {
	return a.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
}

func (a *Adapter) RecentMessages(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	raw, err := a.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	messages := make([]platform.Message, 0, len(raw))
	for _, m := range raw {
		if m.Author == nil {
			continue
		}
		name := m.Author.Username
		if m.Author.GlobalName != "" {
			name = m.Author.GlobalName
		}
		messages = append(messages, platform.Message{
			ID:                m.ID,
			ChannelID:         channelID,
			AuthorID:          m.Author.ID,
			AuthorDisplayName: name,
			AuthorIsBot:       m.Author.Bot,
			Content:           m.Content,
			CleanContent:      m.ContentWithMentionsReplaced(),
			Timestamp:         m.Timestamp,
		})
	}
	return messages, nil
}

func (a *Adapter) CreateForumThread(ctx context.Context, forumChannelID, title, body string) (string, error) {
	thread, err := a.session.ForumThreadStart(forumChannelID, title, 1440, body, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

// EditThreadStarter rewrites a forum thread's starter message, which
// shares the thread's id.
func (a *Adapter) EditThreadStarter(ctx context.Context, threadID, content string) error {
	_, err := a.session.ChannelMessageEdit(threadID, threadID, content, discordgo.WithContext(ctx))
	return err
}

// SendWebhook posts as a named persona through the channel's webhook,
// creating and caching one on first use.
func (a *Adapter) SendWebhook(ctx context.Context, channelID, username, avatarURL, content string) error {
	hook, err := a.channelWebhook(ctx, channelID)
	if err != nil {
		return err
	}

	_, err = a.session.WebhookExecute(hook.ID, hook.Token, true, &discordgo.WebhookParams{
		Content:   content,
		Username:  username,
		AvatarURL: avatarURL,
	}, discordgo.WithContext(ctx))
	return err
}

func (a *Adapter) channelWebhook(ctx context.Context, channelID string) (*discordgo.Webhook, error) {
	a.webhookMu.Lock()
	defer a.webhookMu.Unlock()

	if hook, ok := a.webhooks[channelID]; ok {
		return hook, nil
	}

	hooks, err := a.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err == nil {
		for _, hook := range hooks {
			if hook.Name == webhookName && hook.Token != "" {
				a.webhooks[channelID] = hook
				return hook, nil
			}
		}
	}

	hook, err := a.session.WebhookCreate(channelID, webhookName, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("webhook create: %w", err)
	}
	a.webhooks[channelID] = hook
	return hook, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		return restErr.Response.StatusCode == 404
	}
	return false
}

// ---- platform.Directory ----

func (a *Adapter) GuildName(ctx context.Context, guildID string) (string, error) {
	if guild, err := a.session.State.Guild(guildID); err == nil && guild != nil {
		return guild.Name, nil
	}
	guild, err := a.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return guild.Name, nil
}

func (a *Adapter) Channels(ctx context.Context, guildID string) ([]platform.ChannelInfo, error) {
	raw, err := a.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	channels := make([]platform.ChannelInfo, 0, len(raw))
	for _, ch := range raw {
		channels = append(channels, platform.ChannelInfo{
			ID:       ch.ID,
			Name:     ch.Name,
			Type:     convertChannelType(ch.Type),
			ParentID: ch.ParentID,
			Position: ch.Position,
		})
	}
	return channels, nil
}

func (a *Adapter) Roles(ctx context.Context, guildID string) ([]platform.RoleInfo, error) {
	raw, err := a.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	roles := make([]platform.RoleInfo, 0, len(raw))
	for _, role := range raw {
		roles = append(roles, platform.RoleInfo{
			ID:       role.ID,
			Name:     role.Name,
			Color:    role.Color,
			Position: role.Position,
		})
	}
	return roles, nil
}
