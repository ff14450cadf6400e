package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/px-m-iwakura/nft-photo-server-kaleido/internal/events"
	"go.uber.org/zap"
)

// allOwners is the connection key for clients that did not pass ?address=.
const allOwners = ""

type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]*websocket.Conn),
	}
}

// Start subscribes once. Both bus implementations deliver a subscription's
// events from a single goroutine, so broadcasts never write to a conn
// concurrently.
func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamRegistrations, func(event events.Event) {
		h.broadcast(event)
	})
}

// broadcast sends the event to unfiltered clients and to clients watching
// the event's owner.
func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	owner, _ := event.Payload["owner"].(string)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[allOwners] {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
	if owner == "" {
		return
	}
	for _, conn := range h.connections[strings.ToLower(owner)] {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

func (h *WSHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	key := allOwners
	if addr := conn.Query("address"); addr != "" {
		if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid address"}`))
			conn.Close()
			return
		}
		key = strings.ToLower(addr)
	}

	h.mu.Lock()
	h.connections[key] = append(h.connections[key], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[key]
		for i, c := range conns {
			if c == conn {
				h.connections[key] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[key]) == 0 {
			delete(h.connections, key)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
