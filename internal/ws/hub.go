// Package ws pushes room-state snapshots to websocket subscribers.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
)

// Snapshot is the message sent to subscribers after every change.
type Snapshot struct {
	Type      string       `json:"type"`
	Available int          `json:"available"`
	Rooms     []model.Room `json:"rooms"`
}

// NewSnapshot builds the message for rooms.
func NewSnapshot(rooms []model.Room) Snapshot {
	available := 0
	for _, r := range rooms {
		if !r.Booked {
			available++
		}
	}
	return Snapshot{Type: "rooms", Available: available, Rooms: rooms}
}

// Hub fans snapshots out to every connected client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger

	mu    sync.RWMutex
	count int
}

// NewHub creates a Hub.  Run must be started before clients connect.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves register, unregister and broadcast requests until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			if c.initial != nil {
				if msg := c.initial(); msg != nil {
					c.send <- msg
				}
			}
			h.clients[c] = true
			h.setCount(len(h.clients))
			h.logger.Debug("ws client joined", zap.String("client", c.id), zap.Int("total", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.setCount(len(h.clients))
				h.logger.Debug("ws client left", zap.String("client", c.id), zap.Int("total", len(h.clients)))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; drop it rather than stall everyone.
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// Clients reports how many subscribers are connected.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// SnapshotFunc returns an initial-message builder for Serve that reads the
// current rooms from source.
func SnapshotFunc(source func() []model.Room, logger *zap.Logger) func() []byte {
	return func() []byte {
		msg, err := json.Marshal(NewSnapshot(source()))
		if err != nil {
			logger.Warn("ws marshal snapshot failed", zap.Error(err))
			return nil
		}
		return msg
	}
}

// RoomsChanged implements booking.Observer.
func (h *Hub) RoomsChanged(ctx context.Context, rooms []model.Room) {
	msg, err := json.Marshal(NewSnapshot(rooms))
	if err != nil {
		h.logger.Warn("ws marshal snapshot failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	case <-ctx.Done():
	}
}
