package checklist

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrTemplateNameRequired = errors.New("template name is required")
	ErrNoColumns            = errors.New("template needs at least one column")
	ErrTemplateNotFound     = errors.New("template not found")
)

// Template is a named, reusable column layout. It never carries sections or
// rows.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Columns   []Column  `json:"columns"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTemplate validates name and columns and returns a template holding a
// deep copy of cols.
func NewTemplate(name string, cols []Column) (Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Template{}, ErrTemplateNameRequired
	}
	if len(cols) == 0 {
		return Template{}, ErrNoColumns
	}
	return Template{
		ID:        newID("tpl"),
		Name:      name,
		Columns:   CloneColumns(cols),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// TemplateStore persists templates independently of any grid.
type TemplateStore interface {
	SaveTemplate(ctx context.Context, t Template) error
	GetTemplate(ctx context.Context, id string) (Template, error)
	// ListTemplates returns templates newest first.
	ListTemplates(ctx context.Context) ([]Template, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// MemoryTemplateStore keeps templates in a map. Intended for tests and
// single-process demos.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewMemoryTemplateStore() *MemoryTemplateStore {
	return &MemoryTemplateStore{templates: make(map[string]Template)}
}

func (s *MemoryTemplateStore) SaveTemplate(_ context.Context, t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Columns = CloneColumns(t.Columns)
	s.templates[t.ID] = t
	return nil
}

func (s *MemoryTemplateStore) GetTemplate(_ context.Context, id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}
	t.Columns = CloneColumns(t.Columns)
	return t, nil
}

func (s *MemoryTemplateStore) ListTemplates(_ context.Context) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		t.Columns = CloneColumns(t.Columns)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryTemplateStore) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return ErrTemplateNotFound
	}
	delete(s.templates, id)
	return nil
}
