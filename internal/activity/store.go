package activity

import (
	"context"
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/pkg/errors"
)

// Store is the interface for reading and writing history entries.
type Store interface {
	// WriteEntries writes one or more entries (one change → many entries).
	WriteEntries(ctx context.Context, entries []Entry) error

	// QueryByEntity returns entries for one entity, newest first.
	QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) (entries []Entry, nextCursor string, totalCount int, err error)

	// Search matches summaries case-insensitively.
	Search(ctx context.Context, query string, opts SearchOptions) (entries []Entry, totalCount int, err error)
}

const (
	entriesTable = "activity_entries"
	timeLayout   = "2006-01-02T15:04:05.000000000Z"
)

var entryColumns = []string{
	"event_id", "event_type", "occurred_at", "entity_type", "entity_id",
	"role", "session_id", "op", "summary", "category",
}

// SQLStore implements Store on SQLite through the ent SQL driver.
type SQLStore struct {
	drv *entsql.Driver
}

// NewSQLStore wraps an open *sql.DB (modernc.org/sqlite).
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{drv: entsql.OpenDB(dialect.SQLite, db)}
}

// CreateTable creates the activity_entries table and its index.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	for _, ddl := range []string{`
		CREATE TABLE IF NOT EXISTS activity_entries (
			event_id    TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			occurred_at TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			role        TEXT NOT NULL,
			session_id  TEXT NOT NULL,
			op          TEXT NOT NULL DEFAULT '',
			summary     TEXT NOT NULL,
			category    TEXT NOT NULL,
			PRIMARY KEY (entity_type, entity_id, occurred_at, event_id)
		)`, `
		CREATE INDEX IF NOT EXISTS idx_activity_entity_time
			ON activity_entries (entity_type, entity_id, occurred_at DESC)`,
	} {
		if err := s.drv.Exec(ctx, ddl, []any{}, nil); err != nil {
			return errors.Wrap(err, "creating activity table")
		}
	}
	return nil
}

// WriteEntries inserts entries in one statement.
func (s *SQLStore) WriteEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ins := entsql.Dialect(dialect.SQLite).Insert(entriesTable).Columns(entryColumns...)
	for _, e := range entries {
		ins.Values(e.EventID, e.EventType, e.OccurredAt.UTC().Format(timeLayout), e.EntityType,
			e.EntityID, e.Role, e.SessionID, e.Op, e.Summary, e.Category)
	}
	query, args := ins.OnConflict(entsql.DoNothing()).Query()
	return errors.Wrap(s.drv.Exec(ctx, query, args, nil), "writing activity entries")
}

func (s *SQLStore) QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) ([]Entry, string, int, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("entity_type", entityType),
		entsql.EQ("entity_id", entityID),
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", opts.Since.UTC().Format(timeLayout)))
	}
	if opts.Until != nil {
		preds = append(preds, entsql.LTE("occurred_at", opts.Until.UTC().Format(timeLayout)))
	}
	if len(opts.Categories) > 0 {
		preds = append(preds, entsql.In("category", anySlice(opts.Categories)...))
	}

	total, err := s.count(ctx, preds)
	if err != nil {
		return nil, "", 0, err
	}
	if opts.Cursor != "" {
		if ts, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			preds = append(preds, entsql.LT("occurred_at", ts.UTC().Format(timeLayout)))
		}
	}

	limit := queryLimit(opts.Limit)
	entries, err := s.selectEntries(ctx, preds, limit+1)
	if err != nil {
		return nil, "", 0, err
	}
	var next string
	if len(entries) > limit {
		entries = entries[:limit]
		next = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return entries, next, total, nil
}

func (s *SQLStore) Search(ctx context.Context, query string, opts SearchOptions) ([]Entry, int, error) {
	preds := []*entsql.Predicate{
		entsql.ContainsFold("summary", query),
	}
	if opts.EntityType != "" {
		preds = append(preds, entsql.EQ("entity_type", opts.EntityType))
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", opts.Since.UTC().Format(timeLayout)))
	}
	if len(opts.Categories) > 0 {
		preds = append(preds, entsql.In("category", anySlice(opts.Categories)...))
	}
	total, err := s.count(ctx, preds)
	if err != nil {
		return nil, 0, err
	}
	entries, err := s.selectEntries(ctx, preds, searchLimit(opts.Limit))
	return entries, total, err
}

func (s *SQLStore) count(ctx context.Context, preds []*entsql.Predicate) (int, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(entsql.Count("*")).
		From(entsql.Table(entriesTable)).
		Where(entsql.And(preds...)).
		Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return 0, errors.Wrap(err, "counting activity entries")
	}
	defer rows.Close()
	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, errors.Wrap(err, "scanning count")
		}
	}
	return n, errors.Wrap(rows.Err(), "counting activity entries")
}

func (s *SQLStore) selectEntries(ctx context.Context, preds []*entsql.Predicate, limit int) ([]Entry, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(entryColumns...).
		From(entsql.Table(entriesTable)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("occurred_at")).
		Limit(limit).
		Query()
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, errors.Wrap(err, "querying activity entries")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var occurred string
		if err := rows.Scan(&e.EventID, &e.EventType, &occurred, &e.EntityType, &e.EntityID,
			&e.Role, &e.SessionID, &e.Op, &e.Summary, &e.Category); err != nil {
			return nil, errors.Wrap(err, "scanning activity entry")
		}
		ts, err := time.Parse(timeLayout, occurred)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing occurred_at %q", occurred)
		}
		e.OccurredAt = ts
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "querying activity entries")
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
