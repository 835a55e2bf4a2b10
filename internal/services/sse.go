package services

import (
	"sync"
	"time"
)

// PatternEvent announces the patterns recorded for one analysis.
type PatternEvent struct {
	AnalysisID uint      `json:"analysisId,omitempty"`
	Patterns   []string  `json:"patterns"`
	OccurredAt time.Time `json:"occurredAt"`
}

// PatternEventHub fans pattern events out to SSE subscribers.
type PatternEventHub struct {
	clients map[string]chan PatternEvent
	mu      sync.RWMutex
}

func NewPatternEventHub() *PatternEventHub {
	return &PatternEventHub{
		clients: make(map[string]chan PatternEvent),
	}
}

// Subscribe registers clientID and returns its event channel.
func (h *PatternEventHub) Subscribe(clientID string) <-chan PatternEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan PatternEvent, 100)
	h.clients[clientID] = ch
	return ch
}

func (h *PatternEventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish never blocks; a client whose buffer is full misses the event.
func (h *PatternEventHub) Publish(event PatternEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *PatternEventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close ends every open stream. Call it before shutting the HTTP server down
// so long-lived SSE requests return.
func (h *PatternEventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
}
