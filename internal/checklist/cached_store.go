package checklist

import (
	"context"

	cache "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// CachedTemplateStore is a read-through LRU cache in front of another store.
// Lists always go to the backing store.
type CachedTemplateStore struct {
	next  TemplateStore
	cache *cache.Cache
}

func NewCachedTemplateStore(next TemplateStore, size int) (*CachedTemplateStore, error) {
	if size < 1 {
		size = 128
	}
	c, err := cache.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "creating template cache")
	}
	return &CachedTemplateStore{next: next, cache: c}, nil
}

func (s *CachedTemplateStore) SaveTemplate(ctx context.Context, t Template) error {
	if err := s.next.SaveTemplate(ctx, t); err != nil {
		return err
	}
	t.Columns = CloneColumns(t.Columns)
	s.cache.Add(t.ID, t)
	return nil
}

func (s *CachedTemplateStore) GetTemplate(ctx context.Context, id string) (Template, error) {
	if v, ok := s.cache.Get(id); ok {
		t := v.(Template)
		t.Columns = CloneColumns(t.Columns)
		return t, nil
	}
	t, err := s.next.GetTemplate(ctx, id)
	if err != nil {
		return Template{}, err
	}
	s.cache.Add(id, t)
	t.Columns = CloneColumns(t.Columns)
	return t, nil
}

func (s *CachedTemplateStore) ListTemplates(ctx context.Context) ([]Template, error) {
	return s.next.ListTemplates(ctx)
}

func (s *CachedTemplateStore) DeleteTemplate(ctx context.Context, id string) error {
	s.cache.Remove(id)
	return s.next.DeleteTemplate(ctx, id)
}
