package devserver

import "sync"

// Hub fans reload notifications out to the currently running server. It is
// safe for concurrent use and a zero subscriber count is valid.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func(reason string)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(string))}
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub) Subscribe(fn func(reason string)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Broadcast calls every subscriber with reason and returns how many there were.
func (h *Hub) Broadcast(reason string) int {
	h.mu.Lock()
	fns := make([]func(string), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(reason)
	}
	return len(fns)
}
