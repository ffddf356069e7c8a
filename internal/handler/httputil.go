package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/backend"
	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/report"
	"github.com/matthewbaird/formstudio/internal/schema"
)

var validate = validator.New()

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("writeJSON encode error")
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// writeValidationError writes a 422 carrying one message per failing field.
func writeValidationError(w http.ResponseWriter, verr *schema.ValidationError) {
	fields := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		fields[f.Field] = f.Error
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  verr.Error(),
		"code":   "VALIDATION_ERROR",
		"fields": fields,
	})
}

// decodeJSON decodes the request body into v and validates it.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}

// decodeOrFail decodes the body and writes a 400 on failure.
func decodeOrFail(w http.ResponseWriter, r *http.Request, v any) bool {
	err := decodeJSON(r, v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid request",
			"code":   "INVALID_BODY",
			"fields": fields,
		})
		return false
	}
	writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
	return false
}

// parseLimit reads a positive "limit" query parameter capped at max.
func parseLimit(r *http.Request, max int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	if n > max {
		n = max
	}
	return n
}

// serviceErrorToHTTP maps editor, checklist and backend errors to HTTP
// responses.
func serviceErrorToHTTP(w http.ResponseWriter, err error) {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		writeValidationError(w, verr)
		return
	}
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, editor.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, editor.ErrFieldNotFound):
		writeError(w, http.StatusNotFound, "FIELD_NOT_FOUND", err.Error())
	case errors.Is(err, checklist.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", err.Error())
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, "FORM_NOT_FOUND", err.Error())
	case errors.Is(err, editor.ErrUnknownOp):
		writeError(w, http.StatusBadRequest, "UNKNOWN_OP", err.Error())
	case errors.Is(err, editor.ErrNotChecklist), errors.Is(err, report.ErrNotChecklist):
		writeError(w, http.StatusBadRequest, "NOT_CHECKLIST", err.Error())
	case errors.Is(err, editor.ErrNoBackend):
		writeError(w, http.StatusServiceUnavailable, "NO_BACKEND", err.Error())
	case errors.Is(err, checklist.ErrTemplateNameRequired),
		errors.Is(err, checklist.ErrNoColumns):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_TEMPLATE", err.Error())
	case errors.Is(err, checklist.ErrUnknownCell):
		writeError(w, http.StatusNotFound, "CELL_NOT_FOUND", err.Error())
	case errors.Is(err, checklist.ErrInfoColumn),
		errors.Is(err, checklist.ErrCommentsDisabled),
		errors.Is(err, checklist.ErrAttachmentsDisabled),
		errors.Is(err, checklist.ErrInvalidValue),
		errors.Is(err, checklist.ErrAttachmentIndex):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_CELL", err.Error())
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, "BACKEND_ERROR", apiErr.Message)
	default:
		log.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
