package activity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory slices.
// Intended for demos and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStore) QueryByEntity(_ context.Context, entityType, entityID string, opts QueryOptions) ([]Entry, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cursor time.Time
	if opts.Cursor != "" {
		if ts, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			cursor = ts
		}
	}

	var matched []Entry
	for _, e := range s.entries {
		if e.EntityType != entityType || e.EntityID != entityID {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.OccurredAt.After(*opts.Until) {
			continue
		}
		if len(opts.Categories) > 0 && !contains(opts.Categories, e.Category) {
			continue
		}
		if !cursor.IsZero() && !e.OccurredAt.Before(cursor) {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	limit := queryLimit(opts.Limit)
	var next string
	if len(matched) > limit {
		matched = matched[:limit]
		next = matched[len(matched)-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return matched, next, total, nil
}

func (s *MemoryStore) Search(_ context.Context, query string, opts SearchOptions) ([]Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var matched []Entry
	for _, e := range s.entries {
		if !strings.Contains(strings.ToLower(e.Summary), q) {
			continue
		}
		if opts.EntityType != "" && e.EntityType != opts.EntityType {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if len(opts.Categories) > 0 && !contains(opts.Categories, e.Category) {
			continue
		}
		matched = append(matched, e)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	if limit := searchLimit(opts.Limit); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
