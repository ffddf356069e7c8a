// Package event provides change recording for editor operations.
// Changes are fanned out as activity entries via the activity.Store interface,
// then published to the in-process event bus for downstream consumers.
package event

import (
	"context"

	"github.com/matthewbaird/formstudio/internal/activity"
)

// Recorder writes changes to the history store.
type Recorder interface {
	Record(ctx context.Context, c Change) error
}

// Publisher sends changes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, c Change)
}

// ActivityRecorder implements Recorder by fanning out a Change into one
// activity entry per affected entity, then writing via activity.Store.
// If a Publisher is set, the change is also published to the event bus
// after the store write succeeds.
type ActivityRecorder struct {
	store activity.Store
	bus   Publisher
}

// NewActivityRecorder creates a new ActivityRecorder backed by the given store.
func NewActivityRecorder(store activity.Store) *ActivityRecorder {
	return &ActivityRecorder{store: store}
}

// SetPublisher attaches an event bus. Changes are published after store writes.
func (r *ActivityRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

func (r *ActivityRecorder) Record(ctx context.Context, c Change) error {
	entries := make([]activity.Entry, 0, len(c.AffectedEntities))
	for _, ref := range c.AffectedEntities {
		entries = append(entries, activity.Entry{
			EventID:    c.ID,
			EventType:  c.EventType,
			OccurredAt: c.OccurredAt,
			EntityType: ref.EntityType,
			EntityID:   ref.EntityID,
			Role:       ref.Role,
			SessionID:  c.SessionID,
			Op:         c.Op,
			Summary:    c.Summary,
			Category:   c.Category,
		})
	}
	if err := r.store.WriteEntries(ctx, entries); err != nil {
		return err
	}

	if r.bus != nil {
		r.bus.Publish(ctx, c)
	}
	return nil
}
