package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/docupos/api/internal/database"
	"github.com/docupos/api/internal/enum"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub)
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if !hub.clients[client] {
		t.Fatal("client not registered")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.clients[client] {
		t.Fatal("client still registered after unregister")
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub)
	client2 := mockClient(hub)
	client3 := mockClient(hub)

	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"order_id":"test-123"}`)
	hub.Broadcast(Event{
		Type:    EventOrderCreated,
		Payload: testPayload,
	})

	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != EventOrderCreated {
				t.Errorf("client%d: expected type %q, got %q", i+1, EventOrderCreated, received.Type)
			}
			if string(received.Payload) != string(testPayload) {
				t.Errorf("client%d: expected payload %s, got %s", i+1, testPayload, received.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestBroadcastOrderPayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	order := database.Order{
		ID:          uuid.New(),
		OrderNumber: "DOC-000042",
		Status:      enum.OrderStatusPaymentConfirmed,
		TotalAmount: 11000,
	}
	hub.BroadcastOrder(EventOrderStatusChanged, order)

	select {
	case msg := <-client.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal event: %v", err)
		}
		if received.Type != EventOrderStatusChanged {
			t.Errorf("expected type %q, got %q", EventOrderStatusChanged, received.Type)
		}
		var payload orderPayload
		if err := json.Unmarshal(received.Payload, &payload); err != nil {
			t.Fatalf("failed to unmarshal payload: %v", err)
		}
		if payload.OrderNumber != "DOC-000042" {
			t.Errorf("expected order number DOC-000042, got %s", payload.OrderNumber)
		}
		if payload.Status != enum.OrderStatusPaymentConfirmed {
			t.Errorf("expected status payment_confirmed, got %s", payload.Status)
		}
		if payload.TotalAmount != 11000 {
			t.Errorf("expected total 11000, got %d", payload.TotalAmount)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{hub: hub, send: make(chan []byte)} // unbuffered, never read
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(Event{Type: EventStockLow, Payload: json.RawMessage(`{}`)})
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.clients[slow] {
		t.Fatal("slow client should have been dropped")
	}
}
