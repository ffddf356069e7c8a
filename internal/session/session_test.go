package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/formstore"
)

func newSession() *Session {
	return New(NewID(), formstore.New(context.Background()))
}

func TestManager_GetAndRemove(t *testing.T) {
	var evicted []string
	m := NewManager(time.Hour, time.Hour, func(s *Session) { evicted = append(evicted, s.ID) })
	s := newSession()
	m.Add(s)

	assert.Same(t, s, m.Get(s.ID))
	assert.Nil(t, m.Get("missing"))
	assert.True(t, m.Remove(s.ID))
	assert.False(t, m.Remove(s.ID))
	assert.Nil(t, m.Get(s.ID))
	assert.Equal(t, []string{s.ID}, evicted)
}

func TestManager_IdleSessionsExpire(t *testing.T) {
	m := NewManager(time.Hour, time.Millisecond, nil)
	s := newSession()
	m.Add(s)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, m.Cleanup())
	assert.Zero(t, m.Len())
}

func TestManager_MaxAge(t *testing.T) {
	m := NewManager(time.Millisecond, time.Hour, nil)
	s := newSession()
	m.Add(s)
	time.Sleep(5 * time.Millisecond)
	s.Touch()
	assert.Nil(t, m.Get(s.ID))
}

func TestSession_EvictionReleasesBlobs(t *testing.T) {
	b := checklist.NewBuilder(checklist.Config{})
	col := b.AddColumn()
	row := b.AddRow(b.AddSection("S"), "r")
	blobs := checklist.NewMemoryBlobStore()

	s := newSession()
	c := s.Capture("field-1", b.Config(), blobs)
	_, err := c.AddAttachment(row, col, "a.txt", "text/plain", []byte("hi"))
	require.NoError(t, err)
	assert.Same(t, c, s.Capture("field-1", b.Config(), blobs))
	assert.Equal(t, 1, blobs.Len())

	m := NewManager(time.Hour, time.Hour, nil)
	m.Add(s)
	m.Remove(s.ID)
	assert.Zero(t, blobs.Len())
}
