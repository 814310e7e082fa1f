// internal/services/effects.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/salazarbot/salazar/internal/models"
	"github.com/salazarbot/salazar/internal/platform"
	"github.com/salazarbot/salazar/internal/utils"
)

const warActionTemplate = "⚔️ **Ações de guerra**\n" +
	"Postem aqui as ações militares desta guerra. Cada ação será narrada individualmente.\n" +
	"Lembrem-se: ações fora deste tópico não contam para o conflito."

// postNarration sends the header, the chunked narration and the
// attribution footer to the destination. A diff-fenced block travels as
// its own chunk so the size split never cuts through it. Send failures
// are per-chunk: one lost chunk does not stop the rest.
func (s *NarratorService) postNarration(ctx context.Context, channelID, header, narration string) {
	if channelID == "" {
		s.logger.Error("No destination channel for narration", nil)
		return
	}

	chunks := []string{}
	if header != "" {
		chunks = append(chunks, header)
	}
	main, diff := utils.SplitDiffFence(narration)
	chunks = append(chunks, utils.ChunkText(main, utils.MessageChunkLimit)...)
	if diff != "" {
		chunks = append(chunks, diff)
	}
	chunks = append(chunks, attributionFooter)

	for _, chunk := range chunks {
		if chunk == "" {
			continue
		}
		if _, err := s.platform.SendMessage(ctx, channelID, chunk); err != nil {
			s.logger.Warn("Narration chunk failed", map[string]interface{}{
				"channel": channelID,
				"error":   err.Error(),
			})
		}
	}
}

// cleanup clears capture reactions off every fragment and removes the
// wait message. Runs on every terminal path of a cycle, success or
// failure.
func (s *NarratorService) cleanup(ctx context.Context, collected *Collected) {
	s.cleanupFragments(ctx, collected)
	if collected.NoticeMessageID != "" {
		if err := s.platform.DeleteMessage(ctx, collected.NoticeChannelID, collected.NoticeMessageID); err != nil {
			s.logger.Warn("Placeholder delete failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (s *NarratorService) cleanupFragments(ctx context.Context, collected *Collected) {
	for _, f := range collected.Fragments {
		if err := s.platform.ClearReactions(ctx, f.ChannelID, f.ID); err != nil {
			s.logger.Warn("Reaction clear failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// postEphemeral sends a message and deletes it after ttl.
func (s *NarratorService) postEphemeral(channelID, content string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := s.platform.SendMessage(ctx, channelID, content)
	if err != nil {
		s.logger.Warn("Ephemeral send failed", map[string]interface{}{"error": err.Error()})
		return
	}

	time.AfterFunc(ttl, func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.platform.DeleteMessage(delCtx, channelID, id); err != nil {
			s.logger.Warn("Ephemeral delete failed", map[string]interface{}{"error": err.Error()})
		}
	})
}

// handleDiplomacy runs the single-message diplomacy cycle: no collection
// window, one prompt, a five-way directive.
func (s *NarratorService) handleDiplomacy(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig) {
	if s.cfg.PromptDiplomacy == nil {
		return
	}

	if err := s.platform.AddReaction(ctx, msg.ChannelID, msg.ID, reactionCapture); err != nil {
		s.logger.Warn("Capture reaction failed", map[string]interface{}{"error": err.Error()})
	}

	noticeID := ""
	if id, err := s.platform.Reply(ctx, msg.ChannelID, msg.ID, analyzingNotice); err == nil {
		noticeID = id
	} else {
		s.logger.Warn("Analyzing notice failed", map[string]interface{}{"error": err.Error()})
	}

	fields, err := s.promptFields(ctx, msg, cfg, msg.Content)
	if err != nil {
		s.logger.Error("Prompt context load failed", map[string]interface{}{"error": err.Error()})
		s.clearTrigger(ctx, msg, noticeID)
		return
	}

	raw, err := s.gateway.Generate(ctx, s.cfg.PromptDiplomacy.Render(fields), msg.ImageURLs())
	if err != nil {
		s.logger.Error("Generation failed", map[string]interface{}{"error": err.Error()})
		s.clearTrigger(ctx, msg, noticeID)
		return
	}

	directive, err := ParseDiplomacyDirective(raw)
	if err != nil {
		s.recordParseFailure(err)
		s.clearTrigger(ctx, msg, noticeID)
		return
	}

	s.applyDiplomacy(ctx, msg, cfg, directive)
	s.clearTrigger(ctx, msg, noticeID)
}

// clearTrigger removes the capture reaction and the analyzing notice
// from a diplomacy trigger message.
func (s *NarratorService) clearTrigger(ctx context.Context, msg *platform.Message, noticeID string) {
	if err := s.platform.ClearReactions(ctx, msg.ChannelID, msg.ID); err != nil {
		s.logger.Warn("Reaction clear failed", map[string]interface{}{"error": err.Error()})
	}
	if noticeID != "" {
		if err := s.platform.DeleteMessage(ctx, msg.ChannelID, noticeID); err != nil {
			s.logger.Warn("Analyzing notice delete failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// applyDiplomacy fans a validated directive out into its effects. The
// directive already passed the shape contract, so every required field
// for its kind is present.
func (s *NarratorService) applyDiplomacy(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig, d *DiplomacyDirective) {
	switch *d.Kind {
	case DiplomacyNotActionable:
		s.metrics.IncrementCounter(utils.MetricDirectivesSkipped)
		s.logger.Info("Diplomacy declined by model", map[string]interface{}{
			"guild_id": msg.GuildID,
			"reason":   d.Reason,
		})
		return

	case DiplomacyNPCResponse:
		s.sendNPCReply(ctx, msg, d)

	case DiplomacyWarDeclared:
		s.postNarration(ctx, s.routeDestination(msg, cfg), s.narrationHeader(msg), d.Narration)
		s.declareWar(ctx, msg, cfg, d)

	case DiplomacyWarUpdated:
		s.postNarration(ctx, s.routeDestination(msg, cfg), s.narrationHeader(msg), d.Narration)
		s.updateWar(ctx, msg, d)

	case DiplomacyNotable:
		s.postNarration(ctx, s.routeDestination(msg, cfg), s.narrationHeader(msg), d.Narration)
	}

	if _, err := s.world.AppendContext(ctx, msg.GuildID, d.ContextUpdate); err != nil {
		s.logger.Error("Context append failed", map[string]interface{}{"error": err.Error()})
	}
	s.publish("diplomacy_applied", map[string]interface{}{
		"guild_id": msg.GuildID,
		"kind":     int(*d.Kind),
	})
}

// sendNPCReply speaks as the NPC country through a channel webhook, with
// a flag avatar when the image search finds one.
func (s *NarratorService) sendNPCReply(ctx context.Context, msg *platform.Message, d *DiplomacyDirective) {
	avatarURL := ""
	if s.images != nil {
		date, _ := s.world.CurrentDate(ctx, msg.GuildID)
		avatarURL = s.images.Search(ctx, fmt.Sprintf("Bandeira %s %s", d.Country, date))
	}

	content := fmt.Sprintf("%s\n<@%s>", d.NPCReply, msg.AuthorID)
	if err := s.platform.SendWebhook(ctx, msg.ChannelID, d.Country, avatarURL, content); err != nil {
		s.logger.Error("NPC webhook failed", map[string]interface{}{
			"country": d.Country,
			"error":   err.Error(),
		})
	}
}

// declareWar opens the forum thread backing a new war, records it, and
// notifies the declaring author inside the thread with a self-deleting
// ping.
func (s *NarratorService) declareWar(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig, d *DiplomacyDirective) {
	war, err := s.world.RecordWar(ctx, &models.War{
		GuildID:  msg.GuildID,
		Title:    d.WarTitle,
		Synopsis: d.WarSynopsis,
	})
	if err != nil {
		s.logger.Error("War record failed", map[string]interface{}{"error": err.Error()})
		return
	}

	if cfg.Channels.WarForum == "" {
		s.logger.Warn("No war forum configured, thread skipped", map[string]interface{}{
			"guild_id": msg.GuildID,
		})
		return
	}

	threadID, err := s.platform.CreateForumThread(ctx, cfg.Channels.WarForum, d.WarTitle, d.WarSynopsis)
	if err != nil {
		s.logger.Error("War thread create failed", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := s.world.SetWarThread(ctx, msg.GuildID, war.ID, threadID); err != nil {
		s.logger.Error("War thread store failed", map[string]interface{}{"error": err.Error()})
	}

	if _, err := s.platform.SendMessage(ctx, threadID, warActionTemplate); err != nil {
		s.logger.Warn("War action template failed", map[string]interface{}{"error": err.Error()})
	}
	s.postEphemeral(threadID, fmt.Sprintf("<@%s>", msg.AuthorID), 5*time.Second)
}

// updateWar edits an existing war's synopsis and its thread starter.
// A missing war or thread is a logged no-op.
func (s *NarratorService) updateWar(ctx context.Context, msg *platform.Message, d *DiplomacyDirective) {
	war, err := s.world.UpdateWarSynopsis(ctx, msg.GuildID, *d.WarID, d.WarSynopsis)
	if err != nil {
		s.logger.Error("War update failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if war == nil {
		s.logger.Warn("War not found, update skipped", map[string]interface{}{
			"guild_id": msg.GuildID,
			"war_id":   *d.WarID,
		})
		return
	}
	if war.ThreadID == "" {
		return
	}
	if err := s.platform.EditThreadStarter(ctx, war.ThreadID, d.WarSynopsis); err != nil {
		s.logger.Warn("War thread edit failed", map[string]interface{}{"error": err.Error()})
	}
}
