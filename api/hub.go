package api

import (
	"sync"

	"github.com/google/uuid"
)

// sessionBuffer bounds how many undelivered frames a session may hold before
// new frames are dropped for it.
const sessionBuffer = 16

type envelope struct {
	event string
	data  []byte
}

// Hub tracks connected realtime sessions. Registration lives only as long
// as the connection; nothing is carried across disconnects. Delivery is
// best-effort per session: a slow consumer loses frames instead of blocking
// the sender or the other sessions.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]chan envelope
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]chan envelope)}
}

// Register creates a new session and returns its id and delivery channel.
func (h *Hub) Register() (string, <-chan envelope) {
	id := uuid.NewString()
	ch := make(chan envelope, sessionBuffer)
	h.mu.Lock()
	h.sessions[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

// Has reports whether the session is currently connected.
func (h *Hub) Has(id string) bool {
	h.mu.Lock()
	_, ok := h.sessions[id]
	h.mu.Unlock()
	return ok
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	n := len(h.sessions)
	h.mu.Unlock()
	return n
}

// Broadcast delivers the event to every session, dropping it for sessions
// whose buffer is full.
func (h *Hub) Broadcast(event string, data []byte) {
	h.mu.Lock()
	for _, ch := range h.sessions {
		select {
		case ch <- envelope{event: event, data: data}:
		default:
		}
	}
	h.mu.Unlock()
}
