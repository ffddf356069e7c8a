package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/report"
)

const (
	maxUploadBytes = 16 << 20
	uploadField    = "file"
	blobPrefix     = "blob:"
	blobRoute      = "/v1/blobs/"
)

// BlobHref maps a transient attachment URL to the route that serves it.
func BlobHref(url string) string {
	return blobRoute + strings.TrimPrefix(url, blobPrefix)
}

// BlobReader serves attachment content by URL.
type BlobReader interface {
	Get(url string) (data []byte, name, contentType string, ok bool)
}

// ChecklistHandler implements HTTP handlers for checklist grids: grid edits,
// fill-in, attachments and the spreadsheet export.
type ChecklistHandler struct {
	svc   *editor.Service
	blobs BlobReader
}

// NewChecklistHandler creates a new ChecklistHandler.
func NewChecklistHandler(svc *editor.Service, blobs BlobReader) *ChecklistHandler {
	return &ChecklistHandler{svc: svc, blobs: blobs}
}

// ApplyChecklist runs one grid edit on a checklist field.
// POST /v1/sessions/{id}/fields/{fieldID}/checklist
func (h *ChecklistHandler) ApplyChecklist(w http.ResponseWriter, r *http.Request) {
	var op editor.ChecklistOp
	if !decodeOrFail(w, r, &op) {
		return
	}
	res, err := h.svc.ApplyChecklist(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fieldID"), op)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ApplyCell runs one fill-in action on a grid cell.
// POST /v1/sessions/{id}/fields/{fieldID}/cells
func (h *ChecklistHandler) ApplyCell(w http.ResponseWriter, r *http.Request) {
	var op editor.CellOp
	if !decodeOrFail(w, r, &op) {
		return
	}
	resp, err := h.svc.ApplyCell(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fieldID"), op)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetResponses returns the captured values of a checklist field.
// GET /v1/sessions/{id}/fields/{fieldID}/responses
func (h *ChecklistHandler) GetResponses(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Responses(chi.URLParam(r, "id"), chi.URLParam(r, "fieldID"))
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitResponses merges a submitted fill-in form.
// POST /v1/sessions/{id}/fields/{fieldID}/responses
func (h *ChecklistHandler) SubmitResponses(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", err.Error())
		return
	}
	resp, err := h.svc.SubmitResponses(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fieldID"), r.PostForm)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddAttachment stores an uploaded file on a cell. The multipart form
// carries rowId, columnId and the file under "file".
// POST /v1/sessions/{id}/fields/{fieldID}/attachments
func (h *ChecklistHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", err.Error())
		return
	}
	rowID, colID := r.FormValue("rowId"), r.FormValue("columnId")
	if rowID == "" || colID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "rowId and columnId are required")
		return
	}
	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", err.Error())
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", err.Error())
		return
	}
	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	att, err := h.svc.AddAttachment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fieldID"),
		rowID, colID, hdr.Filename, contentType, data)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// RemoveAttachment drops one attachment of a cell and releases its blob.
// DELETE /v1/sessions/{id}/fields/{fieldID}/attachments?rowId=&columnId=&index=
func (h *ChecklistHandler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	index, err := strconv.Atoi(q.Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INDEX", "index must be an integer")
		return
	}
	op := editor.CellOp{Op: "remove_attachment", RowID: q.Get("rowId"), ColumnID: q.Get("columnId"), Index: index}
	if err := validate.Struct(op); err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "rowId and columnId are required")
		return
	}
	resp, err := h.svc.ApplyCell(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "fieldID"), op)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Report exports a checklist field's responses as XLSX.
// GET /v1/sessions/{id}/fields/{fieldID}/report.xlsx
func (h *ChecklistHandler) Report(w http.ResponseWriter, r *http.Request) {
	fieldID := chi.URLParam(r, "fieldID")
	wb, err := h.svc.Workbook(chi.URLParam(r, "id"), fieldID)
	if err != nil {
		serviceErrorToHTTP(w, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": fieldID + ".xlsx",
	}))
	if err := wb.Write(w); err != nil {
		log.WithError(err).WithField("field_id", fieldID).Error("writing workbook failed")
	}
}

// GetBlob serves attachment content.
// GET /v1/blobs/{key}
func (h *ChecklistHandler) GetBlob(w http.ResponseWriter, r *http.Request) {
	data, name, contentType, ok := h.blobs.Get(blobPrefix + chi.URLParam(r, "key"))
	if !ok {
		writeError(w, http.StatusNotFound, "BLOB_NOT_FOUND", "attachment not found or released")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
