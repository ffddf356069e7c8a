package wire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formstudio/internal/event"
)

func TestHub_DeliversToSessionSubscribers(t *testing.T) {
	h := NewHub()
	a, unsubA := h.Subscribe("s1")
	defer unsubA()
	b, unsubB := h.Subscribe("s2")
	defer unsubB()

	require.NoError(t, h.HandleEvent(context.Background(), event.NewFormChanged("s1", "", "add_field")))

	select {
	case msg := <-a:
		assert.Equal(t, "changed", msg.Type)
		assert.Equal(t, "add_field", msg.Data.(ChangedData).Op)
	default:
		t.Fatal("subscriber of s1 got nothing")
	}
	assert.Empty(t, b)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe("s1")
	assert.Equal(t, 1, h.Subscribers("s1"))

	unsub()
	unsub()
	assert.Zero(t, h.Subscribers("s1"))
	_, ok := <-ch
	assert.False(t, ok)

	// No subscribers left: nothing to deliver and nothing to fail.
	assert.NoError(t, h.HandleEvent(context.Background(), event.NewFormChanged("s1", "", "set_title")))
}

func TestHub_DropsWhenFull(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe("s1")
	defer unsub()
	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, h.HandleEvent(context.Background(), event.NewFormChanged("s1", "", "set_title")))
	}
	assert.Len(t, ch, subscriberBuffer)
}
