// History handlers read the change history of sessions, forms and fields
// from the activity store.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/formstudio/internal/activity"
)

// HistoryHandler implements HTTP handlers over the activity store.
type HistoryHandler struct {
	store activity.Store
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(store activity.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// GetEntityHistory returns the changes touching one entity, newest first.
// GET /v1/history/{entity_type}/{entity_id}
func (h *HistoryHandler) GetEntityHistory(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entity_type")
	entityID := chi.URLParam(r, "entity_id")
	if entityType == "" || entityID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "entity_type and entity_id are required")
		return
	}

	q := r.URL.Query()
	opts := activity.DefaultQueryOptions()
	if s := q.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			opts.Since = &t
		}
	}
	if u := q.Get("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			opts.Until = &t
		}
	}
	if cats := q.Get("categories"); cats != "" {
		opts.Categories = strings.Split(cats, ",")
	}
	if n := parseLimit(r, 500); n > 0 {
		opts.Limit = n
	}
	opts.Cursor = q.Get("cursor")

	entries, nextCursor, totalCount, err := h.store.QueryByEntity(r.Context(), entityType, entityID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}

	resp := struct {
		Entries    []activity.Entry `json:"entries"`
		NextCursor string           `json:"next_cursor,omitempty"`
		TotalCount int              `json:"total_count"`
	}{
		Entries:    entries,
		NextCursor: nextCursor,
		TotalCount: totalCount,
	}
	if resp.Entries == nil {
		resp.Entries = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query      string   `json:"query" validate:"required"`
	EntityType string   `json:"entity_type,omitempty"`
	Since      string   `json:"since,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// SearchHistory finds changes whose summary contains the query.
// POST /v1/history/search
func (h *HistoryHandler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeOrFail(w, r, &req) {
		return
	}

	opts := activity.DefaultSearchOptions()
	opts.EntityType = req.EntityType
	opts.Categories = req.Categories
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}
	if req.Since != "" {
		if t, err := time.Parse(time.RFC3339, req.Since); err == nil {
			opts.Since = &t
		}
	}

	entries, totalCount, err := h.store.Search(r.Context(), req.Query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		return
	}

	resp := struct {
		Results    []activity.Entry `json:"results"`
		TotalCount int              `json:"total_count"`
	}{
		Results:    entries,
		TotalCount: totalCount,
	}
	if resp.Results == nil {
		resp.Results = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, resp)
}
