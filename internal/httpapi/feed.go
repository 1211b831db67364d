package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	feedBuffer   = 16
	writeTimeout = 5 * time.Second
)

// Feed pushes cycle updates to websocket clients.
type Feed struct {
	upgrader  websocket.Upgrader
	broadcast chan any

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, feedBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run fans broadcasts out until ctx ends, then closes every client.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			for c := range f.clients {
				_ = c.Close()
				delete(f.clients, c)
			}
			f.mu.Unlock()
			return
		case msg := <-f.broadcast:
			f.send(msg)
		}
	}
}

// Broadcast queues msg; it drops the message when the queue is full.
func (f *Feed) Broadcast(msg any) {
	select {
	case f.broadcast <- msg:
	default:
		slog.Debug("ws feed full, dropping update")
	}
}

func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Feed) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("ws marshal", "error", err)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Debug("ws client dropped", "error", err)
			_ = c.Close()
			delete(f.clients, c)
		}
	}
}

func (f *Feed) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	f.mu.Lock()
	f.clients[ws] = struct{}{}
	f.mu.Unlock()
	slog.Debug("ws client connected", "remote", r.RemoteAddr)

	defer func() {
		f.mu.Lock()
		delete(f.clients, ws)
		f.mu.Unlock()
		slog.Debug("ws client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
