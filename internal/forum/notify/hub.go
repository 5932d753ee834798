package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"stackit/internal/forum/model"
	"stackit/pkg/utils/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// HubConfig holds configuration for Hub.
type HubConfig struct {
	// AllowedOrigins restricts browser upgrades; empty or "*" accepts any origin.
	AllowedOrigins []string
	SendBuffer     int
}

// Hub keeps the open notification streams of each user and pushes new
// notifications to them. A client that cannot keep up is disconnected.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	buffer   int
}

type client struct {
	userID string
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates an empty Hub.
func NewHub(cfg HubConfig) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	h := &Hub{
		clients: make(map[string]map[*client]struct{}),
		buffer:  cfg.SendBuffer,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, item := range allowed {
			if item == "*" || item == origin {
				return true
			}
		}
		return false
	}
}

// Deliver pushes n to every open stream of its recipient.
func (h *Hub) Deliver(_ context.Context, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}
	h.dispatch(n.UserID, data)
	return nil
}

// dispatch returns how many streams accepted the payload.
func (h *Hub) dispatch(userID string, data []byte) int {
	h.mu.RLock()
	var slow []*client
	sent := 0
	for c := range h.clients[userID] {
		select {
		case c.send <- data:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unregister(c)
	}
	return sent
}

// Connections counts the open streams of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if set, ok := h.clients[c.userID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.userID)
			}
		}
	}
	h.mu.Unlock()
	c.close()
}

// Serve upgrades the request and streams notifications for userID until the
// peer goes away. The upgrader has already answered the request when it fails.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}
	c := &client{userID: userID, send: make(chan []byte, h.buffer)}
	h.register(c)
	logger.Info(r.Context(), "notification stream opened", zap.String("user_id", userID))

	go h.writePump(conn, c)
	h.readPump(conn, c)
	logger.Info(r.Context(), "notification stream closed", zap.String("user_id", userID))
	return nil
}

// readPump drains client frames so control messages are processed; streams are
// push-only and any payload from the client is ignored.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unregister(c)
		_ = conn.Close()
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every stream.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*client]struct{})
	h.mu.Unlock()
	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}
