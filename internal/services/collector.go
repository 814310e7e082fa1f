// internal/services/collector.go
package services

import (
	"strings"
	"sync"
	"time"

	"github.com/salazarbot/salazar/internal/platform"
	"github.com/salazarbot/salazar/internal/utils"
)

// WindowClass distinguishes the two collection flows.
type WindowClass string

const (
	WindowAction WindowClass = "action"
	WindowEvent  WindowClass = "event"
)

// Window accumulates the fragments of one multi-part submission. The
// first qualifying message opens it; follow-ups from the same author in
// the same channel land in it until the timer fires.
type Window struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	Class     WindowClass
	Opened    time.Time

	mu              sync.Mutex
	fragments       []*platform.Message
	closed          bool
	noticeChannelID string
	noticeMessageID string
}

// Append adds a fragment. Returns false once the window has closed, in
// which case the message must open a new one.
func (w *Window) Append(msg *platform.Message) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	w.fragments = append(w.fragments, msg)
	return true
}

// SetNotice records the wait message posted when the window opened, so
// the close path can edit and later remove it.
func (w *Window) SetNotice(channelID, messageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.noticeChannelID = channelID
	w.noticeMessageID = messageID
}

// seal closes the window and returns its fragments in arrival order.
func (w *Window) seal() []*platform.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.fragments
}

func (w *Window) notice() (channelID, messageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.noticeChannelID, w.noticeMessageID
}

// Collected is a sealed window handed to the close callback.
type Collected struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	Class     WindowClass
	Fragments []*platform.Message

	// The wait message posted at open, if any.
	NoticeChannelID string
	NoticeMessageID string
}

// First returns the window-opening message.
func (c *Collected) First() *platform.Message {
	if len(c.Fragments) == 0 {
		return nil
	}
	return c.Fragments[0]
}

// Text joins the fragment contents in arrival order.
func (c *Collected) Text() string {
	parts := make([]string, 0, len(c.Fragments))
	for _, f := range c.Fragments {
		parts = append(parts, f.Content)
	}
	return strings.Join(parts, "\n")
}

// ImageURLs gathers every image attachment URL across the fragments.
func (c *Collected) ImageURLs() []string {
	var urls []string
	for _, f := range c.Fragments {
		urls = append(urls, f.ImageURLs()...)
	}
	return urls
}

// Collector tracks open windows and Q&A cooldowns. One author gets at
// most one open window per class per channel.
type Collector struct {
	windows   sync.Map // windowKey -> *Window
	cooldowns sync.Map // cooldownKey -> time.Time (expiry)

	cooldownTTL time.Duration
	metrics     *utils.MetricsCollector
	logger      *utils.Logger
}

type windowKey struct {
	guildID   string
	channelID string
	authorID  string
	class     WindowClass
}

type cooldownKey struct {
	guildID  string
	authorID string
}

// NewCollector creates a collector with the given Q&A cooldown.
func NewCollector(cooldownTTL time.Duration) *Collector {
	if cooldownTTL <= 0 {
		cooldownTTL = 10 * time.Minute
	}
	return &Collector{
		cooldownTTL: cooldownTTL,
		metrics:     utils.GetMetricsCollector(),
		logger:      utils.GetLogger(),
	}
}

// HasOpenWindow reports whether the author already has an open window of
// the given class in the given channel.
func (c *Collector) HasOpenWindow(guildID, channelID, authorID string, class WindowClass) bool {
	_, ok := c.windows.Load(windowKey{guildID, channelID, authorID, class})
	return ok
}

// Open opens a window for the message's author, or appends to the
// existing one. Returns the window and whether it was freshly opened.
// When a window is freshly opened, after d elapses it seals itself and
// invokes onClose with the collected fragments on a new goroutine.
func (c *Collector) Open(msg *platform.Message, class WindowClass, d time.Duration, onClose func(*Collected)) (*Window, bool) {
	key := windowKey{msg.GuildID, msg.ChannelID, msg.AuthorID, class}

	w := &Window{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		AuthorID:  msg.AuthorID,
		Class:     class,
		Opened:    time.Now(),
	}

	actual, loaded := c.windows.LoadOrStore(key, w)
	win := actual.(*Window)
	if !win.Append(msg) {
		// Lost a race with the closing timer: the old window sealed
		// between LoadOrStore and Append. Drop only that window, a
		// concurrent open may have stored a newer one already.
		c.windows.CompareAndDelete(key, actual)
		return c.Open(msg, class, d, onClose)
	}
	if loaded {
		return win, false
	}

	c.metrics.IncrementCounter(utils.MetricWindowsOpened)
	c.metrics.AddGauge(utils.MetricOpenWindows, 1)
	c.logger.Debug("Collection window opened", map[string]interface{}{
		"guild_id": msg.GuildID,
		"author":   msg.AuthorID,
		"class":    string(class),
	})

	time.AfterFunc(d, func() {
		fragments := win.seal()
		noticeCh, noticeID := win.notice()
		c.windows.CompareAndDelete(key, actual)
		c.metrics.IncrementCounter(utils.MetricWindowsClosed)
		c.metrics.AddGauge(utils.MetricOpenWindows, -1)

		if onClose != nil {
			onClose(&Collected{
				GuildID:         win.GuildID,
				ChannelID:       win.ChannelID,
				AuthorID:        win.AuthorID,
				Class:           win.Class,
				Fragments:       fragments,
				NoticeChannelID: noticeCh,
				NoticeMessageID: noticeID,
			})
		}
	})

	return win, true
}

// Join appends a follow-up fragment to the author's open window of the
// given class in the message's channel. Returns false when no window is
// open there (or it just sealed).
func (c *Collector) Join(msg *platform.Message, class WindowClass) bool {
	v, ok := c.windows.Load(windowKey{msg.GuildID, msg.ChannelID, msg.AuthorID, class})
	if !ok {
		return false
	}
	return v.(*Window).Append(msg)
}

// MarkCooldown starts the author's Q&A cooldown.
func (c *Collector) MarkCooldown(guildID, authorID string) {
	c.cooldowns.Store(cooldownKey{guildID, authorID}, time.Now().Add(c.cooldownTTL))
}

// InCooldown reports whether the author is still rate-limited. Expired
// entries are dropped on sight.
func (c *Collector) InCooldown(guildID, authorID string) bool {
	key := cooldownKey{guildID, authorID}
	v, ok := c.cooldowns.Load(key)
	if !ok {
		return false
	}
	if time.Now().After(v.(time.Time)) {
		c.cooldowns.Delete(key)
		return false
	}
	return true
}
