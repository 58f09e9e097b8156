package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/firefront/internal/grid"
)

const (
	maxStreamClients = 8
	writeTimeout     = 10 * time.Second
)

// StreamHub fans committed frames out to websocket subscribers. Clients that
// cannot keep up are dropped rather than allowed to stall the broadcaster.
type StreamHub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader

	broadcast  chan grid.Frame
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewStreamHub starts the broadcaster goroutine.
func NewStreamHub() *StreamHub {
	h := &StreamHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan grid.Frame, 4),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is enforced at the HTTP layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	h.wg.Add(1)
	go h.run()
	return h
}

// ClientCount returns the number of connected subscribers.
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a frame for delivery. Drops the frame when the queue is
// full so the tick loop never blocks on slow clients.
func (h *StreamHub) Broadcast(f grid.Frame) {
	select {
	case h.broadcast <- f:
	default:
	}
}

// HandleWS upgrades the request and subscribes the connection.
func (h *StreamHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	if h.ClientCount() >= maxStreamClients {
		http.Error(w, "too many stream clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	select {
	case h.register <- conn:
		slog.Info("stream client connected", "remote", r.RemoteAddr)
	case <-h.done:
		conn.Close()
		return
	}

	// Reader goroutine: we never expect client messages, but reading is
	// required to notice closes and process control frames.
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *StreamHub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case frame := <-h.broadcast:
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}

			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				conns = append(conns, conn)
			}
			h.mu.RUnlock()

			var failed []*websocket.Conn
			for _, conn := range conns {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					failed = append(failed, conn)
				}
			}

			if len(failed) > 0 {
				h.mu.Lock()
				for _, conn := range failed {
					if _, ok := h.clients[conn]; ok {
						delete(h.clients, conn)
						conn.Close()
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// Close drops all subscribers and stops the broadcaster.
func (h *StreamHub) Close() {
	close(h.done)

	h.mu.Lock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	h.wg.Wait()
}
