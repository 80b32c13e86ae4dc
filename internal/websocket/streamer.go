// Package websocket streams investigation events to connected clients in
// real time.
package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ghostwallet/hunter/internal/events"
)

// Streamer is a fan-out hub: every event published on the bus is written to
// every connected websocket client.
type Streamer struct {
	mu         sync.RWMutex
	clients    map[*websocket.Conn]bool
	broadcast  chan *events.Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

// NewStreamer creates a websocket hub.
func NewStreamer() *Streamer {
	return &Streamer{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan *events.Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.New(log.Writer(), "[STREAM] ", log.LstdFlags),
	}
}

// Run drives the hub loop. Call once in its own goroutine.
func (s *Streamer) Run() {
	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client] = true
			total := len(s.clients)
			s.mu.Unlock()
			s.logger.Printf("📡 Client connected (total: %d)", total)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				client.Close()
			}
			total := len(s.clients)
			s.mu.Unlock()
			s.logger.Printf("📡 Client disconnected (total: %d)", total)

		case event := <-s.broadcast:
			s.mu.Lock()
			for client := range s.clients {
				if err := client.WriteJSON(event); err != nil {
					s.logger.Printf("⚠️ Write failed, dropping client: %v", err)
					client.Close()
					delete(s.clients, client)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Attach consumes a bus subscription and feeds the hub until the channel
// closes.
func (s *Streamer) Attach(bus *events.EventBus) {
	ch := bus.Subscribe()
	go func() {
		for event := range ch {
			select {
			case s.broadcast <- event:
			default:
				// Hub backlog full, drop.
			}
		}
	}()
}

// HandleWebSocket upgrades the connection and registers the client. The
// read loop exists only to detect disconnects; clients never send.
func (s *Streamer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("⚠️ Upgrade failed: %v", err)
		return
	}

	s.register <- conn

	go func() {
		defer func() { s.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Statistics reports hub state for the health endpoint.
func (s *Streamer) Statistics() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"connected_clients": len(s.clients),
		"broadcast_backlog": len(s.broadcast),
	}
}
