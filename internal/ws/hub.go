// Package ws pushes order lifecycle events to connected staff dashboards.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event types pushed to staff.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentSubmitted   = "payment.submitted"
	EventStockLow           = "stock.low"
)

// orderPayload is the wire shape of an order event.
type orderPayload struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Status      enum.OrderStatus `json:"status"`
	TotalAmount int64            `json:"total_amount"`
}

// Hub maintains the set of active staff connections and broadcasts events to
// all of them.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan Event

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and drop it
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every connected staff client.
func (h *Hub) Broadcast(event Event) {
	h.broadcast <- event
}

// BroadcastOrder sends an order event built from the order row.
func (h *Hub) BroadcastOrder(eventType string, order database.Order) {
	payload, err := json.Marshal(orderPayload{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	})
	if err != nil {
		return
	}
	h.Broadcast(Event{Type: eventType, Payload: payload})
}
