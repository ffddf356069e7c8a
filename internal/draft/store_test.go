package draft

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, ok, err := store.Load(ctx, "form-builder-storage:a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "form-builder-storage:a", []byte(`{"v":1}`)))
	require.NoError(t, store.Save(ctx, "form-builder-storage:a", []byte(`{"v":2}`)))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, store.Save(ctx, "form-builder-storage:b", []byte(`{}`)))
	require.NoError(t, store.Save(ctx, "other", []byte(`{}`)))

	data, ok, err := store.Load(ctx, "form-builder-storage:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(data))

	list, err := store.List(ctx, "form-builder-storage:")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "form-builder-storage:b", list[0].Key)

	require.NoError(t, store.Delete(ctx, "form-builder-storage:a"))
	_, ok, err = store.Load(ctx, "form-builder-storage:a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewSQLStore(db)
	require.NoError(t, store.CreateTable(context.Background()))
	exerciseStore(t, store)
}
