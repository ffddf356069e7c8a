// Package activity stores the change history of editor sessions and forms.
// One change fans out into one entry per affected entity, so the history of
// a form can be read across every session that edited it.
package activity

import "time"

// Entry is one indexed history record.
type Entry struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	EntityType string    `json:"entity_type"` // "session", "form", "field"
	EntityID   string    `json:"entity_id"`
	Role       string    `json:"role"` // "subject", "context"
	SessionID  string    `json:"session_id"`
	Op         string    `json:"op,omitempty"`
	Summary    string    `json:"summary"`
	Category   string    `json:"category"` // "form", "checklist", "lifecycle"
}

// QueryOptions controls filtering and pagination for entity history queries.
type QueryOptions struct {
	Since      *time.Time
	Until      *time.Time
	Categories []string
	Limit      int    // default: 100, max: 500
	Cursor     string // occurred_at of the last entry of the previous page
}

// SearchOptions controls filtering for summary search.
type SearchOptions struct {
	EntityType string
	Since      *time.Time
	Categories []string
	Limit      int // default: 20
}

// DefaultQueryOptions returns QueryOptions covering the last 30 days.
func DefaultQueryOptions() QueryOptions {
	since := time.Now().AddDate(0, 0, -30)
	return QueryOptions{Since: &since, Limit: 100}
}

// DefaultSearchOptions returns SearchOptions with sensible defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Limit: 20}
}

func queryLimit(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}

func searchLimit(n int) int {
	if n <= 0 {
		return 20
	}
	return n
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
