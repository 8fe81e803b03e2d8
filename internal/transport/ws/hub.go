package ws

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/voice-testbench/internal/activity"
)

type Conn interface {
	Send(msg Message) error
	Close() error
}

// Hub: все подключённые дашборды.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		_ = c.Send(msg) // best-effort
	}
}

// Publish реализует activity.Publisher: новая запись уходит всем открытым дашбордам.
func (h *Hub) Publish(_ context.Context, e activity.Entry) error {
	h.Broadcast(Message{Type: TypeActivity, Payload: e, TSUnix: time.Now().Unix()})
	return nil
}

// CloseAll рвёт все соединения; вызывается при остановке сервера.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[Conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		_ = c.Close()
	}
}
