package checklist

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func sampleTemplate(t *testing.T, name string) Template {
	t.Helper()
	b := NewBuilder(Config{})
	b.AddColumn()
	tpl, err := b.SaveTemplate(name)
	require.NoError(t, err)
	return tpl
}

func exerciseStore(t *testing.T, store TemplateStore) {
	ctx := context.Background()

	older := sampleTemplate(t, "older")
	older.CreatedAt = time.Now().Add(-time.Hour).UTC()
	newer := sampleTemplate(t, "newer")
	require.NoError(t, store.SaveTemplate(ctx, older))
	require.NoError(t, store.SaveTemplate(ctx, newer))

	got, err := store.GetTemplate(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "older", got.Name)
	assert.Equal(t, older.Columns, got.Columns)

	list, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	require.NoError(t, store.DeleteTemplate(ctx, older.ID))
	_, err = store.GetTemplate(ctx, older.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.ErrorIs(t, store.DeleteTemplate(ctx, older.ID), ErrTemplateNotFound)
}

func TestMemoryTemplateStore(t *testing.T) {
	exerciseStore(t, NewMemoryTemplateStore())
}

func TestSQLTemplateStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewSQLTemplateStore(db)
	require.NoError(t, store.CreateTable(context.Background()))
	exerciseStore(t, store)
}

func TestCachedTemplateStore(t *testing.T) {
	store, err := NewCachedTemplateStore(NewMemoryTemplateStore(), 4)
	require.NoError(t, err)
	exerciseStore(t, store)
}
