package http

import (
	"sync"

	"chat-front/internal/session"
)

const eventBuffer = 16

type event struct {
	Name string
	Data any
}

// EventHub reparte cambios de estado y notificaciones a los clientes SSE.
// Implementa session.Notifier.
type EventHub struct {
	mu      sync.Mutex
	clients map[chan event]struct{}
}

// NewEventHub crea un hub sin clientes.
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[chan event]struct{})}
}

// Notify publica una notificación para todos los clientes.
func (h *EventHub) Notify(n session.Notification) {
	h.broadcast(event{Name: "notification", Data: n})
}

// PublishState publica una instantánea del controlador.
func (h *EventHub) PublishState(s session.State) {
	h.broadcast(event{Name: "state", Data: s})
}

func (h *EventHub) subscribe() (<-chan event, func()) {
	ch := make(chan event, eventBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}

func (h *EventHub) broadcast(ev event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Cliente lento: se pierde el evento, el próximo estado lo corrige.
		}
	}
}
