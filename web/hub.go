package web

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
)

// Message types pushed to and received from dashboard clients
const (
	MessageTypeStatus        = "status"
	MessageTypeOverlay       = "overlay"
	MessageTypeOverlayClosed = "overlay-closed"
	MessageTypeResult        = "result"
	MessageTypeRun           = "run"

	MessageTypeChoose  = "choose"
	MessageTypeDismiss = "dismiss"
)

// Message is the envelope for every websocket frame
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// inboundMessage defers decoding Data until the type is known
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type StatusMessage struct {
	Status string `json:"status"`
}

type OverlayClosedMessage struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

type ResultMessage struct {
	Text string `json:"text"`
}

type ChooseMessage struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

type DismissMessage struct {
	Token string `json:"token"`
}

type RunMessage struct {
	ID        string `json:"id"`
	Flow      string `json:"flow"`
	Preset    string `json:"preset"`
	Outcome   string `json:"outcome"`
	Timestamp string `json:"timestamp"`
}

// Hub tracks connected clients and fans broadcasts out to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int32

	// onMessage receives frames read from any client
	onMessage func(c *Client, raw []byte)
}

// NewHub creates a hub. Run must be started before clients register.
func NewHub(onMessage func(c *Client, raw []byte)) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		onMessage:  onMessage,
	}
}

// Run serves registrations and broadcasts until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int32(len(h.clients)))
			slog.Debug("Dashboard client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.count.Store(int32(len(h.clients)))
				slog.Debug("Dashboard client disconnected", "clients", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, drop it
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.count.Store(int32(len(h.clients)))

		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.count.Store(0)
			return
		}
	}
}

// Stop ends Run and closes all client send queues
func (h *Hub) Stop() {
	close(h.done)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastMessage sends msg to every connected client
func (h *Hub) BroadcastMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal broadcast", "type", msg.Type, "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		slog.Warn("Broadcast queue full, dropping message", "type", msg.Type)
	}
}
