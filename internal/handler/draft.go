package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/matthewbaird/formstudio/internal/draft"
	"github.com/matthewbaird/formstudio/internal/editor"
)

// DraftLister lists persisted drafts.
type DraftLister interface {
	List(ctx context.Context, prefix string) ([]draft.Entry, error)
}

// DraftHandler lists the sessions that can be resumed.
type DraftHandler struct {
	drafts DraftLister
}

// NewDraftHandler creates a new DraftHandler.
func NewDraftHandler(drafts DraftLister) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

type draftResponse struct {
	SessionID string    `json:"sessionId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListDrafts returns resumable drafts, most recently updated first.
// GET /v1/drafts
func (h *DraftHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	prefix := editor.DraftKey("")
	entries, err := h.drafts.List(r.Context(), prefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if n := parseLimit(r, 100); n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	out := make([]draftResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, draftResponse{
			SessionID: strings.TrimPrefix(e.Key, prefix),
			UpdatedAt: e.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
