// Package ws implements the WebSocket feed of task change events.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/taskboard/internal/domain/task"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 64
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`

	// status is the task status the event carries, if any. Connections that
	// subscribed with a status filter only receive matching events.
	status task.Status
}

// conn wraps a single WebSocket connection. Outgoing messages are queued on
// send and written by the connection's own writer goroutine.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
	status task.Status
	send   chan []byte
}

// writeLoop drains the send queue until ctx ends or a write fails.
func (c *conn) writeLoop(ctx context.Context, h *Hub) {
	defer h.remove(c)
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				slog.DebugContext(ctx, "websocket write failed", "error", err)
				return
			}
		}
	}
}

func (c *conn) wants(msg Message) bool {
	return c.status == "" || msg.status == "" || c.status == msg.status
}

// Hub manages all active WebSocket connections and broadcasts messages.
type Hub struct {
	mu             sync.RWMutex
	conns          map[*conn]struct{}
	originPatterns []string
	dropped        atomic.Int64
}

// NewHub creates a new WebSocket hub. originPatterns restricts cross-origin
// upgrades; "*" or an empty list accepts any origin.
func NewHub(originPatterns []string) *Hub {
	return &Hub{
		conns:          make(map[*conn]struct{}),
		originPatterns: originPatterns,
	}
}

func (h *Hub) acceptOptions() *websocket.AcceptOptions {
	if len(h.originPatterns) == 0 || (len(h.originPatterns) == 1 && h.originPatterns[0] == "*") {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.originPatterns}
}

// HandleWS upgrades the request to a WebSocket. An optional ?status= query
// parameter limits the feed to events for tasks in that status.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	var status task.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := task.ParseStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status = s
	}

	ws, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		slog.ErrorContext(r.Context(), "websocket accept failed", "error", err)
		return
	}

	// The request context ends when the handler returns; the connection
	// outlives it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &conn{ws: ws, cancel: cancel, status: status, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	slog.InfoContext(ctx, "websocket connected", "remote", r.RemoteAddr, "status_filter", string(status))

	go c.writeLoop(ctx, h)

	// Read loop (to detect disconnects and consume pings)
	go func() {
		defer func() {
			h.remove(c)
			_ = ws.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()
}

// Broadcast queues a message for every connected client whose filter
// matches. It never blocks: a client whose queue is full misses the message.
func (h *Hub) Broadcast(ctx context.Context, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "websocket marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		if !c.wants(msg) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
			slog.DebugContext(ctx, "websocket client too slow, message dropped", "type", msg.Type)
		}
	}
}

// DroppedCount returns the number of messages dropped for slow clients.
func (h *Hub) DroppedCount() int64 {
	return h.dropped.Load()
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		h.remove(c)
	}
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		slog.Info("websocket disconnected")
	}
}
