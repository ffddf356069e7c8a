package eventbus

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/event"
)

// LogConsumer logs all changes for observability.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, ch event.Change) error {
	entities := make([]string, len(ch.AffectedEntities))
	for i, ref := range ch.AffectedEntities {
		entities[i] = ref.EntityType + ":" + ref.EntityID
	}
	log.WithFields(log.Fields{
		"event_type": ch.EventType,
		"category":   ch.Category,
		"session_id": ch.SessionID,
		"op":         ch.Op,
		"entities":   entities,
	}).Info(ch.Summary)
	return nil
}
