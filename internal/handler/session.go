package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/formstore"
)

// maxImportBytes bounds an imported form payload.
const maxImportBytes = 4 << 20

// SessionHandler implements HTTP handlers for editor sessions and their
// form operations.
type SessionHandler struct {
	svc *editor.Service
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc *editor.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type sessionResponse struct {
	ID    string          `json:"id"`
	State formstore.State `json:"state"`
}

// CreateSession opens an editor session.
// POST /v1/sessions?formId=&resume=
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, err := h.svc.Open(r.Context(), editor.OpenOptions{
		FormID: q.Get("formId"),
		Resume: q.Get("resume"),
	})
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, State: sess.Store().State()})
}

// GetSession returns the current state of a session.
// GET /v1/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.svc.State(id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: st})
}

// DeleteSession closes a session. ?discard=true also deletes its draft.
// DELETE /v1/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	discard := r.URL.Query().Get("discard") == "true"
	if err := h.svc.Close(r.Context(), chi.URLParam(r, "id"), discard); err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type opResponse struct {
	Result editor.Result   `json:"result"`
	State  formstore.State `json:"state"`
}

// ApplyOp runs one named form operation.
// POST /v1/sessions/{id}/ops
func (h *SessionHandler) ApplyOp(w http.ResponseWriter, r *http.Request) {
	var op editor.Op
	if !decodeOrFail(w, r, &op) {
		return
	}
	res, st, err := h.svc.Apply(chi.URLParam(r, "id"), op)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opResponse{Result: res, State: st})
}

// GetForm returns the backend payload of the session's form.
// GET /v1/sessions/{id}/form
func (h *SessionHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Form(chi.URLParam(r, "id"))
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// SaveForm creates or updates the form on the backend.
// POST /v1/sessions/{id}/save
func (h *SessionHandler) SaveForm(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Save(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ImportForm replaces the session's form with the posted payload.
// POST /v1/sessions/{id}/import
func (h *SessionHandler) ImportForm(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Import(id, raw); err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	st, err := h.svc.State(id)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, State: st})
}

// Preview renders the session's form as HTML. ?readOnly=true disables every
// control.
// GET /v1/sessions/{id}/preview
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	readOnly := r.URL.Query().Get("readOnly") == "true"
	var buf bytes.Buffer
	if err := h.svc.Preview(&buf, chi.URLParam(r, "id"), readOnly); err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
