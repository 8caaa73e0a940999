package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"quantdash/internal/analytics"
	"quantdash/internal/cache"
	"quantdash/internal/metrics"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub manages dashboard WebSocket clients and pushes store-update events.
// A watcher goroutine polls the store fingerprint; when ingestion has added
// rows every client receives a store_updated envelope with fresh KPIs.
type Hub struct {
	loader *cache.Loader
	mx     *metrics.Metrics

	mu          sync.RWMutex
	clients     map[*Client]bool
	fingerprint string
}

// NewHub creates a hub over the cached store loader.
func NewHub(loader *cache.Loader, mx *metrics.Metrics) *Hub {
	return &Hub{
		loader:  loader,
		mx:      mx,
		clients: make(map[*Client]bool),
	}
}

// HandleWS upgrades the connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[dashboard] ws upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}
	conn.EnableWriteCompression(true)

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	fp := h.fingerprint
	h.mu.Unlock()

	if h.mx != nil {
		h.mx.WSClients.Set(float64(count))
	}
	log.Printf("[dashboard] ws client connected (%d total)", count)

	hello, _ := json.Marshal(map[string]interface{}{
		"type":        "hello",
		"fingerprint": fp,
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
	})
	client.send <- hello

	go client.writePump()
	go client.readPump()
}

// RemoveClient unregisters a client and closes its send channel.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	if h.mx != nil {
		h.mx.WSClients.Set(float64(count))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// Watch polls the store fingerprint until ctx is cancelled. On a change it
// drops the stale cached matrices and notifies every client. Blocks.
func (h *Hub) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fp, err := h.loader.Fingerprint(ctx)
			if err != nil {
				log.Printf("[dashboard] fingerprint poll failed: %v", err)
				continue
			}

			h.mu.Lock()
			changed := fp != h.fingerprint && h.fingerprint != ""
			first := h.fingerprint == ""
			h.fingerprint = fp
			h.mu.Unlock()

			if first || !changed {
				continue
			}

			log.Printf("[dashboard] store updated, fingerprint now %s", fp)
			if err := h.loader.Invalidate(ctx); err != nil {
				log.Printf("[dashboard] cache invalidation failed: %v", err)
			}

			envelope := map[string]interface{}{
				"type":        "store_updated",
				"fingerprint": fp,
				"ts":          time.Now().UTC().Format(time.RFC3339Nano),
			}
			if m, _, err := h.loader.Load(ctx); err == nil && m.Rows() >= 2 {
				envelope["kpi"] = analytics.KPIs(m)
			}
			data, _ := json.Marshal(envelope)
			h.broadcast(data)
		}
	}
}
