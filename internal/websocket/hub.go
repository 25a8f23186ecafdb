package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts/events"
)

// Message types pushed to clients.
const (
	TypeConnection = string(events.MessageTypeConnection)
	TypeProgress   = string(events.MessageTypePipelineProgress)
	TypeWorkbook   = string(events.MessageTypeWorkbookUpdate)
	TypeError      = string(events.MessageTypeError)
)

const broadcastBuffer = 256

// Hub maintains the set of active clients and broadcasts messages to them.
// Only the Run goroutine touches the client set and closes send channels.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	count   atomic.Int64
	sent    atomic.Int64
	dropped atomic.Int64

	logger *slog.Logger
}

// NewHub creates a stopped hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in a goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.count.Store(0)
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))

			ctx := infrastructure.WithTraceID(context.Background(), client.traceID)
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", len(h.clients)))

			if msg, err := encode(TypeConnection, events.Connection{ClientID: client.id, TraceID: client.traceID}); err == nil {
				select {
				case client.send <- msg:
				default:
				}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.count.Store(int64(len(h.clients)))
				h.logger.Info("client unregistered",
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
					h.sent.Add(1)
				default:
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Broadcast sends a typed message to every client. It never blocks; messages
// are dropped when the hub is stopped or its queue is full.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	msg, err := encode(messageType, data)
	if err != nil {
		h.logger.Error("failed to encode message",
			slog.String("type", messageType),
			slog.String("error", err.Error()))
		return
	}
	select {
	case <-h.quit:
		h.dropped.Add(1)
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, message dropped", slog.String("type", messageType))
	}
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	case <-h.quit:
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Stats reports hub counters.
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients": h.count.Load(),
		"messages_sent":  h.sent.Load(),
		"dropped":        h.dropped.Load(),
	}
}

func encode(messageType string, data interface{}) ([]byte, error) {
	return json.Marshal(events.Message{
		Type:      events.MessageType(messageType),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}
