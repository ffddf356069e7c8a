package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/formstudio/internal/checklist"
)

// TemplateHandler implements HTTP handlers for checklist column templates.
type TemplateHandler struct {
	store checklist.TemplateStore
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(store checklist.TemplateStore) *TemplateHandler {
	return &TemplateHandler{store: store}
}

type createTemplateRequest struct {
	Name    string             `json:"name" validate:"required"`
	Columns []checklist.Column `json:"columns" validate:"required,min=1"`
}

// ListTemplates returns every template, newest first.
// GET /v1/checklist-templates
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListTemplates(r.Context())
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	if list == nil {
		list = []checklist.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateTemplate stores a new template.
// POST /v1/checklist-templates
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	t, err := checklist.NewTemplate(req.Name, req.Columns)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	if err := h.store.SaveTemplate(r.Context(), t); err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// GetTemplate returns one template.
// GET /v1/checklist-templates/{id}
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTemplate removes one template.
// DELETE /v1/checklist-templates/{id}
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
