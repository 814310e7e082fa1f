// internal/services/narrator_service.go
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/salazarbot/salazar/internal/config"
	apperrors "github.com/salazarbot/salazar/internal/errors"
	"github.com/salazarbot/salazar/internal/models"
	"github.com/salazarbot/salazar/internal/platform"
	"github.com/salazarbot/salazar/internal/prompt"
	"github.com/salazarbot/salazar/internal/utils"
)

const (
	// reactionCapture acknowledges a captured fragment.
	reactionCapture = "📝"

	// irrelevantSentinel is what the event model emits when the submission
	// is not worth keeping in the context log.
	irrelevantSentinel = "IRRELEVANTE!!!"

	// attributionFooter trails every narration, as its own chunk.
	attributionFooter = "-# Narração gerada por Inteligência Artificial. Narrações podem conter erros."

	placeholderText   = "⏳ Gerando narração..."
	analyzingNotice   = "-# Analisando ação..."
	cooldownNotice    = "⏳ Calma! Você já me perguntou algo há pouco. Tente novamente em alguns minutos."
	maintenanceNotice = "🔧 Estou em manutenção no momento. Tente novamente mais tarde."
	setupNudge        = "⚙️ Este servidor ainda não terminou a configuração. Use o painel de configuração para concluir."
)

// yearPattern pulls the target year out of a time-channel message.
var yearPattern = regexp.MustCompile(`\d+`)

// collectNotice is the reply posted when a window opens, telling the
// author until when follow-up parts are accepted.
func collectNotice(deadline time.Time) string {
	return fmt.Sprintf("⏳ Envie todas as partes da sua ação até <t:%d:R>.", deadline.Unix())
}

// EventFeed receives pipeline events for the live monitoring feed.
type EventFeed interface {
	Publish(eventType string, data map[string]interface{})
}

// NarratorService drives the whole pipeline: classify, collect, prompt,
// generate, parse, apply. One instance serves every guild.
type NarratorService struct {
	platform platform.Platform
	guilds   *GuildService
	world    *ContextService
	gateway  *GatewayService
	images   *ImageSearchService
	cfg      *config.Config
	feed     EventFeed

	collector *Collector

	mu          sync.RWMutex
	classifier  *Classifier
	maintenance bool

	logger  *utils.Logger
	metrics *utils.MetricsCollector
}

// NewNarratorService wires the pipeline together. The classifier becomes
// active once SetBotUser is called with the connected bot's user id.
func NewNarratorService(
	pf platform.Platform,
	guilds *GuildService,
	world *ContextService,
	gateway *GatewayService,
	images *ImageSearchService,
	cfg *config.Config,
	feed EventFeed,
) *NarratorService {
	return &NarratorService{
		platform:  pf,
		guilds:    guilds,
		world:     world,
		gateway:   gateway,
		images:    images,
		cfg:       cfg,
		feed:      feed,
		collector: NewCollector(10 * time.Minute),
		logger:    utils.GetLogger(),
		metrics:   utils.GetMetricsCollector(),
	}
}

// SetBotUser installs the connected bot's user id and activates the
// classifier. Messages arriving earlier are ignored.
func (s *NarratorService) SetBotUser(userID string) {
	s.mu.Lock()
	s.classifier = NewClassifier(userID, s.collector)
	s.mu.Unlock()
}

// SetMaintenance toggles maintenance mode. While on, actionable messages
// get a short self-deleting notice instead of a narration cycle.
func (s *NarratorService) SetMaintenance(on bool) {
	s.mu.Lock()
	s.maintenance = on
	s.mu.Unlock()
}

func (s *NarratorService) publish(eventType string, data map[string]interface{}) {
	if s.feed != nil {
		s.feed.Publish(eventType, data)
	}
}

// HandleMessage is the entry point for every inbound guild message.
func (s *NarratorService) HandleMessage(ctx context.Context, msg *platform.Message) {
	s.mu.RLock()
	classifier := s.classifier
	maintenance := s.maintenance
	s.mu.RUnlock()

	if classifier == nil || msg == nil || msg.AuthorIsBot || msg.GuildID == "" {
		return
	}

	cfg, err := s.guilds.Config(msg.GuildID)
	if err != nil {
		s.logger.Error("Guild config load failed", map[string]interface{}{
			"guild_id": msg.GuildID,
			"error":    err.Error(),
		})
		return
	}
	if cfg == nil {
		s.maybeNudgeSetup(ctx, msg)
		return
	}
	if !cfg.NarrationEnabled() {
		return
	}

	category := classifier.Classify(msg, cfg)
	if category == CategoryIgnore {
		if s.joinOpenWindow(ctx, msg, cfg) {
			return
		}
		s.maybeNoticeCooldown(ctx, msg, cfg, classifier)
		return
	}

	if maintenance {
		s.postEphemeral(msg.ChannelID, maintenanceNotice, 5*time.Second)
		return
	}

	s.publish("message_classified", map[string]interface{}{
		"guild_id": msg.GuildID,
		"category": category.String(),
	})

	switch category {
	case CategorySecretAction:
		s.handleSecretAction(ctx, msg, cfg)
	case CategoryAction:
		s.startWindow(ctx, msg, cfg, WindowAction)
	case CategoryEvent:
		s.startWindow(ctx, msg, cfg, WindowEvent)
	case CategoryTimeAdvance:
		s.handleTimeAdvance(ctx, msg)
	case CategoryDiplomacy:
		s.handleDiplomacy(ctx, msg, cfg)
	case CategoryContextHygiene:
		s.handleContextHygiene(ctx, msg)
	case CategoryQuestion:
		s.handleQuestion(ctx, msg, cfg)
	}
}

// maybeNudgeSetup points an admin at the unfinished setup flow.
func (s *NarratorService) maybeNudgeSetup(ctx context.Context, msg *platform.Message) {
	if !msg.AuthorIsAdmin {
		return
	}
	state, err := s.guilds.Setup(msg.GuildID)
	if err != nil || state == nil {
		return
	}
	s.postEphemeral(msg.ChannelID, setupNudge, 10*time.Second)
}

// maybeNoticeCooldown answers a rate-limited mention with a notice. The
// classifier treats cooling-down mentions as non-actionable; the notice
// still has to go out.
func (s *NarratorService) maybeNoticeCooldown(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig, cl *Classifier) {
	if cl.botUserID == "" || !msg.MentionsUser(cl.botUserID) {
		return
	}
	if cfg.Tier < models.TierNarration || !cfg.Preferences.GlobalAnswers {
		return
	}
	if !s.collector.InCooldown(msg.GuildID, msg.AuthorID) {
		return
	}
	s.metrics.IncrementCounter(utils.MetricCooldownSuppressed)
	if _, err := s.platform.Reply(ctx, msg.ChannelID, msg.ID, cooldownNotice); err != nil {
		s.logger.Warn("Cooldown notice failed", map[string]interface{}{"error": err.Error()})
	}
}

// startWindow opens or joins a collection window and acknowledges the
// fragment. A fresh window gets a wait message telling the author the
// collection deadline; on close the wait message becomes the generation
// placeholder and the collected fragments run a narration cycle.
func (s *NarratorService) startWindow(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig, class WindowClass) {
	duration := time.Duration(cfg.Preferences.ActionWindow()) * time.Second

	win, created := s.collector.Open(msg, class, duration, func(collected *Collected) {
		cycleCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.runNarrationCycle(cycleCtx, collected, cfg)
	})
	if created {
		deadline := time.Now().Add(duration)
		if id, err := s.platform.Reply(ctx, msg.ChannelID, msg.ID, collectNotice(deadline)); err == nil {
			win.SetNotice(msg.ChannelID, id)
		} else {
			s.logger.Warn("Wait message failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := s.platform.AddReaction(ctx, msg.ChannelID, msg.ID, reactionCapture); err != nil {
		s.logger.Warn("Capture reaction failed", map[string]interface{}{"error": err.Error()})
	}
}

// joinOpenWindow routes a follow-up from an author with an open window
// into that window's fragment list. The timer is not restarted.
func (s *NarratorService) joinOpenWindow(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig) bool {
	var class WindowClass
	switch {
	case inActionChannel(msg, cfg) && s.collector.HasOpenWindow(msg.GuildID, msg.ChannelID, msg.AuthorID, WindowAction):
		class = WindowAction
	case (contains(cfg.Channels.Events, msg.ChannelID) || contains(cfg.Channels.Events, msg.ParentID)) &&
		s.collector.HasOpenWindow(msg.GuildID, msg.ChannelID, msg.AuthorID, WindowEvent):
		class = WindowEvent
	default:
		return false
	}

	if !s.collector.Join(msg, class) {
		return false
	}
	if err := s.platform.AddReaction(ctx, msg.ChannelID, msg.ID, reactionCapture); err != nil {
		s.logger.Warn("Capture reaction failed", map[string]interface{}{"error": err.Error()})
	}
	return true
}

func (s *NarratorService) windowTemplate(class WindowClass) *prompt.Template {
	if class == WindowEvent {
		return s.cfg.PromptEvent
	}
	return s.cfg.PromptNarration
}

// runNarrationCycle is the window-close path: prompt, generate, apply,
// cleanup. Action windows expect a structured directive and post a
// narration; event windows take the reply as free text for the context
// log, or the irrelevance sentinel. Cleanup runs on every terminal
// branch.
func (s *NarratorService) runNarrationCycle(ctx context.Context, collected *Collected, cfg *models.GuildConfig) {
	first := collected.First()
	if first == nil {
		return
	}

	tmpl := s.windowTemplate(collected.Class)
	if tmpl == nil {
		s.logger.Warn("No prompt template for flow, skipping", map[string]interface{}{
			"class": string(collected.Class),
		})
		s.cleanup(ctx, collected)
		return
	}

	// The wait message becomes the generation placeholder.
	if collected.NoticeMessageID != "" {
		if err := s.platform.EditMessage(ctx, collected.NoticeChannelID, collected.NoticeMessageID, placeholderText); err != nil {
			s.logger.Warn("Placeholder edit failed", map[string]interface{}{"error": err.Error()})
		}
	}

	fields, err := s.promptFields(ctx, first, cfg, collected.Text())
	if err != nil {
		s.logger.Error("Prompt context load failed", map[string]interface{}{"error": err.Error()})
		s.cleanup(ctx, collected)
		return
	}

	raw, err := s.gateway.Generate(ctx, tmpl.Render(fields), collected.ImageURLs())
	if err != nil {
		s.logger.Error("Generation failed", map[string]interface{}{
			"guild_id": first.GuildID,
			"error":    err.Error(),
		})
		s.cleanup(ctx, collected)
		return
	}

	if collected.Class == WindowEvent {
		s.applyEventReply(ctx, collected, raw)
		s.cleanup(ctx, collected)
		return
	}

	directive, err := ParseNarrationDirective(raw)
	if err != nil {
		s.recordParseFailure(err)
		s.cleanup(ctx, collected)
		return
	}

	if !directive.IsValid() {
		s.metrics.IncrementCounter(utils.MetricDirectivesSkipped)
		s.logger.Info("Narration declined by model", map[string]interface{}{
			"guild_id": first.GuildID,
			"reason":   directive.Reason,
		})
		s.cleanup(ctx, collected)
		return
	}

	destination := s.routeDestination(first, cfg)
	s.postNarration(ctx, destination, s.narrationHeader(first), directive.Narration)

	if _, err := s.world.AppendContext(ctx, first.GuildID, directive.ContextUpdate); err != nil {
		s.logger.Error("Context append failed", map[string]interface{}{"error": err.Error()})
	}

	s.metrics.IncrementCounter(utils.MetricNarrationsPosted)
	s.publish("narration_posted", map[string]interface{}{
		"guild_id": first.GuildID,
		"class":    string(collected.Class),
	})
	s.cleanup(ctx, collected)
}

// applyEventReply stores an event reply in the context log. The model
// answers with free text, or the irrelevance sentinel when the
// submission adds nothing to the world state.
func (s *NarratorService) applyEventReply(ctx context.Context, collected *Collected, raw string) {
	if strings.Contains(raw, irrelevantSentinel) {
		s.metrics.IncrementCounter(utils.MetricDirectivesSkipped)
		s.logger.Info("Event discarded by model", map[string]interface{}{
			"guild_id": collected.GuildID,
		})
		return
	}

	if _, err := s.world.AppendContext(ctx, collected.GuildID, raw); err != nil {
		s.logger.Error("Context append failed", map[string]interface{}{"error": err.Error()})
		return
	}
	s.publish("event_context_appended", map[string]interface{}{
		"guild_id": collected.GuildID,
	})
}

// promptFields resolves the world state a template interpolates.
func (s *NarratorService) promptFields(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig, text string) (prompt.Fields, error) {
	date, err := s.world.CurrentDate(ctx, msg.GuildID)
	if err != nil {
		return prompt.Fields{}, err
	}
	countries, err := s.world.PlayerCountries(ctx, msg.GuildID)
	if err != nil {
		return prompt.Fields{}, err
	}
	wars, err := s.world.WarSummaries(ctx, msg.GuildID)
	if err != nil {
		return prompt.Fields{}, err
	}
	worldContext, err := s.world.ContextLog(ctx, msg.GuildID)
	if err != nil {
		return prompt.Fields{}, err
	}

	return prompt.Fields{
		Player:    msg.AuthorDisplayName,
		GuildName: msg.GuildName,
		Action:    text,
		Date:      date,
		Countries: countries,
		Wars:      wars,
		Context:   worldContext,
		Extra:     cfg.Preferences.ExtraPrompt,
	}, nil
}

// routeDestination picks where narration chunks land: country-category
// channels narrate in place, everything else goes to the narrations
// channel.
func (s *NarratorService) routeDestination(msg *platform.Message, cfg *models.GuildConfig) string {
	for _, cat := range cfg.Channels.CountryCategories {
		if cat != "" && (cat == msg.CategoryID || cat == msg.ParentID) {
			return msg.ChannelID
		}
	}
	return cfg.Channels.Narrations
}

func (s *NarratorService) narrationHeader(msg *platform.Message) string {
	return fmt.Sprintf("# Ação de %s\n- Ação original: %s\n- Menções: <@%s>",
		msg.AuthorDisplayName, msg.URL, msg.AuthorID)
}

func (s *NarratorService) recordParseFailure(err error) {
	if apperrors.IsSchemaViolation(err) {
		s.metrics.IncrementCounter(utils.MetricSchemaViolations)
		s.logger.Error("Model reply violates shape contract", map[string]interface{}{
			"field": apperrors.ViolatedField(err),
		})
		return
	}
	s.metrics.IncrementCounter(utils.MetricParseFailures)
	s.logger.Error("Model reply unparseable", map[string]interface{}{"error": err.Error()})
}

// handleTimeAdvance rewrites the in-game year to the one named in the
// message and confirms in the time channel. A message without a number
// is ignored.
func (s *NarratorService) handleTimeAdvance(ctx context.Context, msg *platform.Message) {
	m := yearPattern.FindString(msg.Content)
	if m == "" {
		return
	}
	target := 0
	fmt.Sscanf(m, "%d", &target)

	next, from, err := s.world.AdvanceToYear(ctx, msg.GuildID, target)
	if err != nil {
		s.logger.Error("Year advance failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if next == "" {
		s.logger.Warn("No in-game date to advance", map[string]interface{}{"guild_id": msg.GuildID})
		return
	}

	note := fmt.Sprintf("Data atual: %s", next)
	if delta := target - from; delta > 0 {
		note = fmt.Sprintf("Passaram-se %d ano(s). Data atual: %s", delta, next)
	}
	if _, err := s.world.AppendContext(ctx, msg.GuildID, note); err != nil {
		s.logger.Error("Context append failed", map[string]interface{}{"error": err.Error()})
	}
	if _, err := s.platform.SendMessage(ctx, msg.ChannelID, "🗓️ "+note); err != nil {
		s.logger.Warn("Time confirmation failed", map[string]interface{}{"error": err.Error()})
	}
}

// handleContextHygiene deletes unmarked messages from context channels.
func (s *NarratorService) handleContextHygiene(ctx context.Context, msg *platform.Message) {
	if err := s.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		s.logger.Warn("Context hygiene delete failed", map[string]interface{}{"error": err.Error()})
	}
}

// handleSecretAction mirrors a secret action into the log channel as an
// embed and removes the original so other players never see it.
func (s *NarratorService) handleSecretAction(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig) {
	if cfg.Channels.SecretActionsLog != "" {
		embed := platform.Embed{
			Title:       fmt.Sprintf("Ação secreta de %s", msg.AuthorDisplayName),
			Description: msg.Content,
			Color:       0x2b2d31,
			Timestamp:   msg.Timestamp,
		}
		if _, err := s.platform.SendEmbed(ctx, cfg.Channels.SecretActionsLog, embed); err != nil {
			s.logger.Error("Secret action log failed", map[string]interface{}{"error": err.Error()})
			return
		}
	}
	if err := s.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		s.logger.Warn("Secret action delete failed", map[string]interface{}{"error": err.Error()})
	}
}

// handleQuestion answers a bot mention with channel history as context.
func (s *NarratorService) handleQuestion(ctx context.Context, msg *platform.Message, cfg *models.GuildConfig) {
	if s.cfg.PromptQuestion == nil {
		return
	}

	// The cooldown starts as soon as a question is taken, so a failed
	// generation still counts against the author.
	s.collector.MarkCooldown(msg.GuildID, msg.AuthorID)

	_ = s.platform.SendTyping(ctx, msg.ChannelID)

	history := ""
	if recent, err := s.platform.RecentMessages(ctx, msg.ChannelID, 100); err == nil {
		history = formatHistory(recent)
	}

	fields, err := s.promptFields(ctx, msg, cfg, msg.CleanContent)
	if err != nil {
		s.logger.Error("Prompt context load failed", map[string]interface{}{"error": err.Error()})
		return
	}
	fields.History = history

	raw, err := s.gateway.GenerateWith(ctx, s.cfg.AnswerModel, s.cfg.PromptQuestion.Render(fields))
	if err != nil {
		s.logger.Error("Answer generation failed", map[string]interface{}{"error": err.Error()})
		return
	}

	// Chain the chunks: each replies to the previous one.
	replyTo := msg.ID
	for _, chunk := range utils.ChunkText(raw, utils.MessageChunkLimit) {
		id, err := s.platform.Reply(ctx, msg.ChannelID, replyTo, chunk)
		if err != nil {
			s.logger.Warn("Answer chunk failed", map[string]interface{}{"error": err.Error()})
			continue
		}
		replyTo = id
	}

	s.metrics.IncrementCounter(utils.MetricQuestionsAnswered)
}

// formatHistory renders recent channel messages oldest-first for the
// Q&A prompt.
func formatHistory(messages []platform.Message) string {
	var sb strings.Builder
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		fmt.Fprintf(&sb, "-- %s (ID %s) às %s: %s\n",
			m.AuthorDisplayName, m.AuthorID, m.Timestamp.Format("02/01/2006, 15:04:05"), m.CleanContent)
	}
	return sb.String()
}
