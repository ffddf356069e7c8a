// Package draft persists in-progress editor state as opaque JSON blobs keyed
// by a storage key. It is the durability layer behind formstore.Store.
package draft

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/pkg/errors"
)

// Entry describes one stored draft.
type Entry struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is the interface for reading and writing drafts.
type Store interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the drafts whose key starts with prefix, most recently
	// updated first.
	List(ctx context.Context, prefix string) ([]Entry, error)
}

// MemoryStore implements Store with a map. Intended for demos and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]memoryDraft
}

type memoryDraft struct {
	data      []byte
	updatedAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]memoryDraft)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), d.data...), true, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key] = memoryDraft{data: append([]byte(nil), data...), updatedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for k, d := range s.drafts {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Entry{Key: k, UpdatedAt: d.updatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

const (
	draftsTable = "drafts"
	timeLayout  = "2006-01-02T15:04:05.000000000Z"
)

// SQLStore implements Store on SQLite through the ent SQL driver.
type SQLStore struct {
	drv *entsql.Driver
}

// NewSQLStore wraps an open *sql.DB (modernc.org/sqlite).
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{drv: entsql.OpenDB(dialect.SQLite, db)}
}

// CreateTable creates the drafts table if it is missing.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	err := s.drv.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS drafts (
			key        TEXT PRIMARY KEY,
			state      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`, []any{}, nil)
	return errors.Wrap(err, "creating drafts table")
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("state").
		From(entsql.Table(draftsTable)).
		Where(entsql.EQ("key", key)).
		Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, false, errors.Wrap(err, "loading draft")
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, false, errors.Wrap(rows.Err(), "loading draft")
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, false, errors.Wrap(err, "scanning draft")
	}
	return data, true, nil
}

func (s *SQLStore) Save(ctx context.Context, key string, data []byte) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(draftsTable).
		Columns("key", "state", "updated_at").
		Values(key, data, time.Now().UTC().Format(timeLayout)).
		OnConflict(entsql.ConflictColumns("key"), entsql.ResolveWithNewValues()).
		Query()
	return errors.Wrap(s.drv.Exec(ctx, query, args, nil), "saving draft")
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(draftsTable).
		Where(entsql.EQ("key", key)).
		Query()
	return errors.Wrap(s.drv.Exec(ctx, query, args, nil), "deleting draft")
}

func (s *SQLStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("key", "updated_at").
		From(entsql.Table(draftsTable)).
		Where(entsql.HasPrefix("key", prefix)).
		OrderBy(entsql.Desc("updated_at")).
		Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, errors.Wrap(err, "listing drafts")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.Key, &updated); err != nil {
			return nil, errors.Wrap(err, "scanning draft entry")
		}
		if ts, err := time.Parse(timeLayout, updated); err == nil {
			e.UpdatedAt = ts
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "listing drafts")
}
