package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/formstudio/internal/event"
)

func TestBus_DispatchesInOrder(t *testing.T) {
	bus := New(8)
	var mu sync.Mutex
	var ops []string
	bus.Subscribe("collect", HandlerFunc(func(_ context.Context, c event.Change) error {
		mu.Lock()
		ops = append(ops, c.Op)
		mu.Unlock()
		return nil
	}))
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.Change) error {
		return errors.New("boom")
	}))
	bus.Subscribe("log", NewLogConsumer())
	bus.Start(context.Background())

	for _, op := range []string{"add_section", "add_field", "move_field"} {
		bus.Publish(context.Background(), event.NewFormChanged("s", "", op))
	}
	bus.Stop()

	assert.Equal(t, []string{"add_section", "add_field", "move_field"}, ops)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	bus.Publish(context.Background(), event.NewFormChanged("s", "", "a"))
	bus.Publish(context.Background(), event.NewFormChanged("s", "", "b"))

	var got []string
	bus.Subscribe("collect", HandlerFunc(func(_ context.Context, c event.Change) error {
		got = append(got, c.Op)
		return nil
	}))
	bus.Start(context.Background())
	bus.Stop()
	assert.Equal(t, []string{"a"}, got)
}

func TestBus_PublishAfterStopIsDropped(t *testing.T) {
	bus := New(4)
	bus.Start(context.Background())
	bus.Stop()
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.NewFormChanged("s", "", "late"))
	})
	bus.Stop()
}
