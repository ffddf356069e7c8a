package wire

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/event"
)

// subscriberBuffer is how many undelivered messages a slow connection may
// hold before further messages to it are dropped.
const subscriberBuffer = 32

// Hub fans session changes out to the websocket connections of that session.
// It is an event bus handler.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan ServerMessage]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan ServerMessage]struct{})}
}

// Subscribe registers a connection on a session. The returned function
// unregisters it and closes the channel.
func (h *Hub) Subscribe(sessionID string) (<-chan ServerMessage, func()) {
	ch := make(chan ServerMessage, subscriberBuffer)
	h.mu.Lock()
	set, ok := h.subs[sessionID]
	if !ok {
		set = make(map[chan ServerMessage]struct{})
		h.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connections on a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

func (h *Hub) HandleEvent(_ context.Context, c event.Change) error {
	msg := ServerMessage{
		Type: "changed",
		Data: ChangedData{EventType: c.EventType, Op: c.Op, Summary: c.Summary},
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[c.SessionID] {
		select {
		case ch <- msg:
		default:
			log.WithFields(log.Fields{"session_id": c.SessionID, "event_id": c.ID}).
				Warn("wire: subscriber buffer full, dropping change")
		}
	}
	return nil
}
