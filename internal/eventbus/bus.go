// Package eventbus provides an in-process pub/sub bus for editor changes.
// The editor publishes after each committed operation; subscribers process
// changes asynchronously.
package eventbus

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/event"
)

// Handler processes a change. Implementations must be safe for concurrent
// calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, c event.Change) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, c event.Change) error

func (f HandlerFunc) HandleEvent(ctx context.Context, c event.Change) error {
	return f(ctx, c)
}

// Bus is a simple in-process event bus. Changes are published to a buffered
// channel and dispatched to all subscribers in a single consumer goroutine,
// which keeps per-session ordering intact.
type Bus struct {
	mu          sync.RWMutex
	subscribers []namedHandler
	events      chan event.Change
	done        chan struct{}
	stopped     bool
}

type namedHandler struct {
	name    string
	handler Handler
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		events: make(chan event.Change, bufSize),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a named handler. Must be called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, namedHandler{name: name, handler: h})
}

// Publish sends a change to the bus. Non-blocking: if the buffer is full
// the change is dropped and a warning is logged. Changes published after
// Stop are dropped.
func (b *Bus) Publish(_ context.Context, c event.Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		log.WithFields(log.Fields{"event_type": c.EventType, "event_id": c.ID}).
			Debug("eventbus: stopped, dropping change")
		return
	}
	select {
	case b.events <- c:
	default:
		log.WithFields(log.Fields{"event_type": c.EventType, "event_id": c.ID}).
			Warn("eventbus: buffer full, dropping change")
	}
}

// Start begins the consumer goroutine. It processes changes until the
// context is cancelled or Stop is called.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case c, ok := <-b.events:
				if !ok {
					return
				}
				b.dispatch(ctx, c)
			case <-ctx.Done():
				// Drain remaining changes before exiting.
				for {
					select {
					case c, ok := <-b.events:
						if !ok {
							return
						}
						b.dispatch(ctx, c)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop closes the bus and waits for the consumer goroutine to finish.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.stopped {
		b.stopped = true
		close(b.events)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, c event.Change) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler.HandleEvent(ctx, c); err != nil {
			log.WithFields(log.Fields{
				"subscriber": s.name,
				"event_type": c.EventType,
				"error":      err,
			}).Error("eventbus: handler error")
		}
	}
}
