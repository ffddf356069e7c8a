package checklist

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/pkg/errors"
)

const (
	templatesTable = "checklist_templates"
	// fixed-width so text ordering matches time ordering
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// SQLTemplateStore persists templates in SQLite through the ent SQL driver.
type SQLTemplateStore struct {
	drv *entsql.Driver
}

// NewSQLTemplateStore wraps an open *sql.DB (modernc.org/sqlite).
func NewSQLTemplateStore(db *sql.DB) *SQLTemplateStore {
	return &SQLTemplateStore{drv: entsql.OpenDB(dialect.SQLite, db)}
}

// CreateTable creates the templates table if it is missing.
func (s *SQLTemplateStore) CreateTable(ctx context.Context) error {
	err := s.drv.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS checklist_templates (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			columns    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`, []any{}, nil)
	return errors.Wrap(err, "creating checklist_templates")
}

func (s *SQLTemplateStore) SaveTemplate(ctx context.Context, t Template) error {
	cols, err := json.Marshal(t.Columns)
	if err != nil {
		return errors.Wrap(err, "encoding template columns")
	}
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(templatesTable).
		Columns("id", "name", "columns", "created_at").
		Values(t.ID, t.Name, string(cols), t.CreatedAt.UTC().Format(timeLayout)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	return errors.Wrap(s.drv.Exec(ctx, query, args, nil), "saving template")
}

func (s *SQLTemplateStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("id", "name", "columns", "created_at").
		From(entsql.Table(templatesTable)).
		Where(entsql.EQ("id", id)).
		Query()
	list, err := s.query(ctx, query, args)
	if err != nil {
		return Template{}, err
	}
	if len(list) == 0 {
		return Template{}, ErrTemplateNotFound
	}
	return list[0], nil
}

func (s *SQLTemplateStore) ListTemplates(ctx context.Context) ([]Template, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("id", "name", "columns", "created_at").
		From(entsql.Table(templatesTable)).
		OrderBy(entsql.Desc("created_at")).
		Query()
	return s.query(ctx, query, args)
}

func (s *SQLTemplateStore) DeleteTemplate(ctx context.Context, id string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(templatesTable).
		Where(entsql.EQ("id", id)).
		Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return errors.Wrap(err, "deleting template")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (s *SQLTemplateStore) query(ctx context.Context, query string, args []any) ([]Template, error) {
	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, errors.Wrap(err, "querying templates")
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var (
			t       Template
			cols    string
			created string
		)
		if err := rows.Scan(&t.ID, &t.Name, &cols, &created); err != nil {
			return nil, errors.Wrap(err, "scanning template")
		}
		if err := json.Unmarshal([]byte(cols), &t.Columns); err != nil {
			return nil, errors.Wrapf(err, "decoding columns of template %s", t.ID)
		}
		if ts, err := time.Parse(timeLayout, created); err == nil {
			t.CreatedAt = ts
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "iterating templates")
}
