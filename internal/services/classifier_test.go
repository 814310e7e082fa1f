// internal/services/classifier_test.go
package services

import (
	"strings"
	"testing"

	"github.com/salazarbot/salazar/internal/models"
	"github.com/salazarbot/salazar/internal/platform"
)

type fakeState struct {
	openWindows map[WindowClass]bool
	cooling     bool
}

func (f *fakeState) HasOpenWindow(guildID, channelID, authorID string, class WindowClass) bool {
	return f.openWindows[class]
}

func (f *fakeState) InCooldown(guildID, authorID string) bool {
	return f.cooling
}

func testGuildConfig() *models.GuildConfig {
	return &models.GuildConfig{
		GuildID:   "g1",
		Tier:      models.TierNarration,
		Channels: models.GuildChannels{
			Actions:           []string{"ch-actions"},
			Events:            []string{"ch-events"},
			Diplomacy:         []string{"ch-diplomacy"},
			Time:              []string{"ch-time"},
			Context:           []string{"ch-context"},
			SecretActions:     []string{"ch-secret"},
			CountryCategories: []string{"cat-countries"},
			Narrations:        "ch-narrations",
		},
		Roles: models.GuildRoles{Player: "role-player"},
		Preferences: models.GuildPreferences{
			GlobalAnswers: true,
		},
	}
}

func testMessage(channelID, content string) *platform.Message {
	return &platform.Message{
		ID:          "m1",
		GuildID:     "g1",
		ChannelID:   channelID,
		ChannelType: platform.ChannelText,
		AuthorID:    "u1",
		Content:     content,
	}
}

func TestClassifySecretActionTakesPriority(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-secret", strings.Repeat("a", 600))
	msg.AuthorRoles = []string{"role-player"}

	if got := cl.Classify(msg, testGuildConfig()); got != CategorySecretAction {
		t.Errorf("got %v, want secret action", got)
	}
}

func TestClassifySecretActionRequiresPlayerRole(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-secret", "ação secreta")

	if got := cl.Classify(msg, testGuildConfig()); got == CategorySecretAction {
		t.Error("author without the player role must not classify as secret action")
	}
}

func TestClassifyActionByLength(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-actions", strings.Repeat("a", models.DefaultMinActionLength))

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryAction {
		t.Errorf("got %v, want action", got)
	}
}

func TestClassifyActionByKeywordDiacriticInsensitive(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-actions", "Ação: mobilizar tropas na fronteira")

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryAction {
		t.Errorf("got %v, want action", got)
	}
}

func TestClassifyActionNegationPhrase(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-actions", "Ação: teste, mas NÃO NARRAR por favor "+strings.Repeat("a", 600))

	if got := cl.Classify(msg, testGuildConfig()); got == CategoryAction {
		t.Error("negation phrase must opt the message out of narration")
	}
}

func TestClassifyActionShortWithoutKeywordIgnored(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-actions", "mensagem curta qualquer")

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryIgnore {
		t.Errorf("got %v, want ignore", got)
	}
}

func TestClassifyActionBlockedByOpenWindow(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{WindowAction: true}})
	msg := testMessage("ch-actions", strings.Repeat("a", 600))

	if got := cl.Classify(msg, testGuildConfig()); got == CategoryAction {
		t.Error("an open window must block a second action classification")
	}
}

func TestClassifyActionInCountryCategory(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-unknown", strings.Repeat("a", 600))
	msg.CategoryID = "cat-countries"

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryAction {
		t.Errorf("got %v, want action for country category channel", got)
	}
}

func TestClassifyActionWrongChannelType(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-actions", strings.Repeat("a", 600))
	msg.ChannelType = platform.ChannelPrivateThread

	if got := cl.Classify(msg, testGuildConfig()); got == CategoryAction {
		t.Error("private threads must not classify as action")
	}
}

func TestClassifyEvent(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-events", strings.Repeat("e", models.DefaultMinEventLength))

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryEvent {
		t.Errorf("got %v, want event", got)
	}
}

func TestClassifyEventTooShort(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-events", "evento curto")

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryIgnore {
		t.Errorf("got %v, want ignore", got)
	}
}

func TestClassifyTimeAdvance(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-time", "passaram-se 5 anos")

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryTimeAdvance {
		t.Errorf("got %v, want time advance", got)
	}
}

func TestClassifyDiplomacyByKeyword(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-diplomacy", "Ação diplomática: propor aliança")

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryDiplomacy {
		t.Errorf("got %v, want diplomacy", got)
	}
}

func TestClassifyContextHygiene(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})

	unmarked := testMessage("ch-context", "texto solto sem marcador")
	if got := cl.Classify(unmarked, testGuildConfig()); got != CategoryContextHygiene {
		t.Errorf("got %v, want context hygiene", got)
	}

	// Bold alone is not enough: the subtext line is also required.
	boldOnly := testMessage("ch-context", "**Alemanha** mobiliza tropas")
	if got := cl.Classify(boldOnly, testGuildConfig()); got != CategoryContextHygiene {
		t.Errorf("bold without subtext should be deleted, got %v", got)
	}

	subtextOnly := testMessage("ch-context", "-# fonte: embaixada")
	if got := cl.Classify(subtextOnly, testGuildConfig()); got != CategoryContextHygiene {
		t.Errorf("subtext without a marker should be deleted, got %v", got)
	}

	marked := testMessage("ch-context", "### Janeiro de 1939\n**Alemanha** mobiliza\n-# fonte: embaixada")
	if got := cl.Classify(marked, testGuildConfig()); got != CategoryIgnore {
		t.Errorf("marked context message should survive, got %v", got)
	}
}

func TestClassifyContextHygieneInThread(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})

	msg := testMessage("thread-123", "texto solto sem marcador")
	msg.ChannelType = platform.ChannelPublicThread
	msg.ParentID = "ch-context"

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryContextHygiene {
		t.Errorf("thread under a context channel should be policed, got %v", got)
	}
}

func TestClassifyQuestion(t *testing.T) {
	cl := NewClassifier("bot-id", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-random", "<@bot-id> quem está ganhando a guerra?")
	msg.Mentions = []string{"bot-id"}

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryQuestion {
		t.Errorf("got %v, want question", got)
	}
}

func TestClassifyQuestionSuppressedByCooldown(t *testing.T) {
	cl := NewClassifier("bot-id", &fakeState{openWindows: map[WindowClass]bool{}, cooling: true})
	msg := testMessage("ch-random", "<@bot-id> e agora?")
	msg.Mentions = []string{"bot-id"}

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryIgnore {
		t.Errorf("got %v, want ignore during cooldown", got)
	}
}

func TestClassifyQuestionRequiresTierAndOptIn(t *testing.T) {
	cl := NewClassifier("bot-id", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-random", "<@bot-id> oi")
	msg.Mentions = []string{"bot-id"}

	lowTier := testGuildConfig()
	lowTier.Tier = models.TierBasic
	if got := cl.Classify(msg, lowTier); got != CategoryIgnore {
		t.Errorf("tier 1 guild should ignore mentions, got %v", got)
	}

	optedOut := testGuildConfig()
	optedOut.Preferences.GlobalAnswers = false
	if got := cl.Classify(msg, optedOut); got != CategoryIgnore {
		t.Errorf("opted-out guild should ignore mentions, got %v", got)
	}
}

func TestClassifyIgnoresBots(t *testing.T) {
	cl := NewClassifier("bot", &fakeState{openWindows: map[WindowClass]bool{}})
	msg := testMessage("ch-actions", strings.Repeat("a", 600))
	msg.AuthorIsBot = true

	if got := cl.Classify(msg, testGuildConfig()); got != CategoryIgnore {
		t.Errorf("bot authors must always be ignored, got %v", got)
	}
}
