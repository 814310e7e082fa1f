// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/salazarbot/salazar/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedEvent is one pipeline event on the monitoring feed.
type FeedEvent struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// FeedHub fans pipeline events out to connected websocket clients. It
// implements the narrator's event feed; a guild with no watchers costs
// one map lookup per event.
type FeedHub struct {
	mu      sync.RWMutex
	clients map[*feedClient]struct{}
	logger  *utils.Logger
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewFeedHub creates an empty hub.
func NewFeedHub() *FeedHub {
	return &FeedHub{
		clients: make(map[*feedClient]struct{}),
		logger:  utils.GetLogger(),
	}
}

// Publish broadcasts an event to every connected client. Slow clients
// are dropped rather than allowed to stall the pipeline.
func (h *FeedHub) Publish(eventType string, data map[string]interface{}) {
	payload, err := json.Marshal(FeedEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			go h.remove(client)
		}
	}
}

// HandleFeed upgrades the connection and streams events until the client
// goes away.
func (h *FeedHub) HandleFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Feed upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *FeedHub) writeLoop(client *feedClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		h.remove(client)
	}()

	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards inbound frames; the feed is one-way. It exists to
// notice disconnects and answer pings.
func (h *FeedHub) readLoop(client *feedClient) {
	defer h.remove(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *FeedHub) remove(client *feedClient) {
	h.mu.Lock()
	_, present := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if present {
		// The send channel is never closed; the write loop notices the
		// dead connection on its next write or ping.
		client.once.Do(func() {
			client.conn.Close()
		})
	}
}

// ClientCount returns the number of connected feed clients.
func (h *FeedHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
