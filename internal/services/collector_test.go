// internal/services/collector_test.go
package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/salazarbot/salazar/internal/platform"
)

func collectorMessage(id, author, content string) *platform.Message {
	return &platform.Message{
		ID:        id,
		GuildID:   "g1",
		ChannelID: "ch-1",
		AuthorID:  author,
		Content:   content,
	}
}

func TestCollectorWindowCloses(t *testing.T) {
	c := NewCollector(time.Minute)
	done := make(chan *Collected, 1)

	_, opened := c.Open(collectorMessage("m1", "u1", "primeira parte"), WindowAction,
		50*time.Millisecond, func(col *Collected) { done <- col })
	if !opened {
		t.Fatal("first message should open a window")
	}
	if !c.HasOpenWindow("g1", "ch-1", "u1", WindowAction) {
		t.Fatal("window should be open")
	}

	select {
	case col := <-done:
		if len(col.Fragments) != 1 {
			t.Errorf("expected 1 fragment, got %d", len(col.Fragments))
		}
		if col.Text() != "primeira parte" {
			t.Errorf("unexpected text: %q", col.Text())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("window never closed")
	}

	if c.HasOpenWindow("g1", "ch-1", "u1", WindowAction) {
		t.Error("window state should be cleared after close")
	}
}

func TestCollectorJoinAppendsFragments(t *testing.T) {
	c := NewCollector(time.Minute)
	done := make(chan *Collected, 1)

	c.Open(collectorMessage("m1", "u1", "parte um"), WindowAction,
		100*time.Millisecond, func(col *Collected) { done <- col })

	if !c.Join(collectorMessage("m2", "u1", "parte dois"), WindowAction) {
		t.Fatal("join should land in the open window")
	}

	col := <-done
	if len(col.Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(col.Fragments))
	}
	if col.Text() != "parte um\nparte dois" {
		t.Errorf("fragments out of order: %q", col.Text())
	}
}

func TestCollectorJoinWithoutWindow(t *testing.T) {
	c := NewCollector(time.Minute)
	if c.Join(collectorMessage("m1", "u1", "x"), WindowAction) {
		t.Error("join with no open window must fail")
	}
}

func TestCollectorWindowsArePerAuthorAndClass(t *testing.T) {
	c := NewCollector(time.Minute)
	noop := func(*Collected) {}

	c.Open(collectorMessage("m1", "u1", "a"), WindowAction, time.Minute, noop)

	if c.HasOpenWindow("g1", "ch-1", "u2", WindowAction) {
		t.Error("windows must not leak across authors")
	}
	if c.HasOpenWindow("g1", "ch-1", "u1", WindowEvent) {
		t.Error("windows must not leak across classes")
	}

	_, opened := c.Open(collectorMessage("m2", "u2", "b"), WindowAction, time.Minute, noop)
	if !opened {
		t.Error("another author should open an independent window")
	}
}

func TestCollectorWindowsArePerChannel(t *testing.T) {
	c := NewCollector(time.Minute)
	done := make(chan *Collected, 1)

	c.Open(collectorMessage("m1", "u1", "no canal um"), WindowAction,
		100*time.Millisecond, func(col *Collected) { done <- col })

	if c.HasOpenWindow("g1", "ch-2", "u1", WindowAction) {
		t.Error("windows must not leak across channels")
	}

	elsewhere := collectorMessage("m2", "u1", "no canal dois")
	elsewhere.ChannelID = "ch-2"
	if c.Join(elsewhere, WindowAction) {
		t.Error("a message in another channel must not join the window")
	}

	col := <-done
	if len(col.Fragments) != 1 {
		t.Errorf("expected only the same-channel fragment, got %d", len(col.Fragments))
	}
	if col.ChannelID != "ch-1" {
		t.Errorf("collected channel should be ch-1, got %q", col.ChannelID)
	}
}

func TestCollectorSecondOpenJoinsExistingWindow(t *testing.T) {
	c := NewCollector(time.Minute)
	done := make(chan *Collected, 1)

	c.Open(collectorMessage("m1", "u1", "um"), WindowAction,
		100*time.Millisecond, func(col *Collected) { done <- col })
	_, opened := c.Open(collectorMessage("m2", "u1", "dois"), WindowAction,
		100*time.Millisecond, func(*Collected) { t.Error("second open must not start a timer") })
	if opened {
		t.Fatal("second open for the same author must join, not open")
	}

	col := <-done
	if len(col.Fragments) != 2 {
		t.Errorf("expected both messages captured, got %d", len(col.Fragments))
	}
}

func TestCollectorConcurrentOpensSingleWindow(t *testing.T) {
	c := NewCollector(time.Minute)
	done := make(chan *Collected, 1)
	var openedCount int32
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, opened := c.Open(collectorMessage("m", "u1", "frag"), WindowAction,
				100*time.Millisecond, func(col *Collected) { done <- col })
			if opened {
				mu.Lock()
				openedCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if openedCount != 1 {
		t.Errorf("exactly one goroutine should open the window, got %d", openedCount)
	}

	col := <-done
	if len(col.Fragments) != 10 {
		t.Errorf("all concurrent messages should be captured, got %d", len(col.Fragments))
	}
}

func TestCollectedImageURLs(t *testing.T) {
	col := &Collected{Fragments: []*platform.Message{
		{Content: "a", Attachments: []platform.Attachment{
			{URL: "https://cdn/x.png", ContentType: "image/png"},
			{URL: "https://cdn/doc.pdf", ContentType: "application/pdf"},
		}},
		{Content: "b", Attachments: []platform.Attachment{
			{URL: "https://cdn/y.jpg", ContentType: "image/jpeg"},
		}},
	}}

	urls := col.ImageURLs()
	if len(urls) != 2 {
		t.Fatalf("expected 2 image urls, got %v", urls)
	}
	if urls[0] != "https://cdn/x.png" || urls[1] != "https://cdn/y.jpg" {
		t.Errorf("urls out of order: %v", urls)
	}
}

func TestCooldown(t *testing.T) {
	c := NewCollector(50 * time.Millisecond)

	if c.InCooldown("g1", "u1") {
		t.Error("fresh author should not be cooling down")
	}
	c.MarkCooldown("g1", "u1")
	if !c.InCooldown("g1", "u1") {
		t.Error("author should be cooling down after mark")
	}
	if c.InCooldown("g1", "u2") {
		t.Error("cooldown must not leak across authors")
	}

	time.Sleep(80 * time.Millisecond)
	if c.InCooldown("g1", "u1") {
		t.Error("cooldown should expire")
	}
}

func TestCollectedText(t *testing.T) {
	col := &Collected{Fragments: []*platform.Message{
		{Content: "linha um"},
		{Content: "linha dois"},
		{Content: "linha três"},
	}}
	if got := col.Text(); got != strings.Join([]string{"linha um", "linha dois", "linha três"}, "\n") {
		t.Errorf("unexpected text: %q", got)
	}
}
