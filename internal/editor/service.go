// Package editor runs form-builder sessions: it opens a Form Store per
// session, applies named operations to it, edits checklist grids, captures
// grid responses and saves the result to the backend.
package editor

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/event"
	"github.com/matthewbaird/formstudio/internal/formstore"
	"github.com/matthewbaird/formstudio/internal/render"
	"github.com/matthewbaird/formstudio/internal/schema"
	"github.com/matthewbaird/formstudio/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFieldNotFound   = errors.New("field not found")
	ErrNotChecklist    = errors.New("field is not an inspection checklist")
	ErrUnknownOp       = errors.New("unknown operation")
	ErrNoBackend       = errors.New("no backend configured")
)

// Forms is the slice of the backend client the editor needs.
type Forms interface {
	GetForm(ctx context.Context, id string) (schema.Form, error)
	CreateForm(ctx context.Context, f schema.Form) (schema.Form, error)
	UpdateForm(ctx context.Context, id string, f schema.Form) (schema.Form, error)
}

// Drafts persists in-progress state per session.
type Drafts interface {
	formstore.Persister
	Delete(ctx context.Context, key string) error
}

// Deps wires a Service.
type Deps struct {
	Sessions  *session.Manager
	Drafts    Drafts // optional
	Forms     Forms  // optional
	Templates checklist.TemplateStore
	Blobs     checklist.BlobStore
	Recorder  event.Recorder // optional
	Validator *schema.PayloadValidator
	Renderer  *render.Renderer
	// BlobHref maps attachment URLs to links in rendered previews.
	BlobHref func(url string) string
}

// Service is safe for concurrent use.
type Service struct {
	deps Deps
	log  *log.Entry
}

func New(deps Deps) *Service {
	return &Service{deps: deps, log: log.WithField("component", "editor")}
}

// DraftKey is the storage key of a session's draft.
func DraftKey(sessionID string) string {
	return formstore.DraftKey + ":" + sessionID
}

// OpenOptions selects what a new session starts from.
type OpenOptions struct {
	// FormID loads a saved form from the backend.
	FormID string
	// Resume reopens an earlier session and its persisted draft.
	Resume string
}

// Open starts an editor session. A live session named by Resume is returned
// as is. Otherwise the session restores its draft, when one was persisted,
// and a FormID then replaces the state with the backend form.
func (s *Service) Open(ctx context.Context, opts OpenOptions) (*session.Session, error) {
	if opts.Resume != "" {
		if sess := s.deps.Sessions.Get(opts.Resume); sess != nil {
			return sess, nil
		}
	}
	var form *schema.Form
	if opts.FormID != "" {
		if s.deps.Forms == nil {
			return nil, ErrNoBackend
		}
		f, err := s.deps.Forms.GetForm(ctx, opts.FormID)
		if err != nil {
			return nil, errors.Wrap(err, "loading form")
		}
		if f.ID == "" {
			f.ID = opts.FormID
		}
		form = &f
	}

	id := opts.Resume
	if id == "" {
		id = session.NewID()
	}
	storeOpts := []formstore.Option{
		formstore.WithLogger(s.log.WithField("session_id", id)),
		formstore.WithOnChange(func(op string) { s.storeChanged(id, op) }),
	}
	if s.deps.Drafts != nil {
		storeOpts = append(storeOpts, formstore.WithPersister(s.deps.Drafts, DraftKey(id)))
	}
	sess := session.New(id, formstore.New(ctx, storeOpts...))
	s.deps.Sessions.Add(sess)
	if form != nil {
		sess.Store().LoadForm(*form)
	}
	s.record(ctx, event.NewSessionOpened(id, sess.Store().State().FormID))
	return sess, nil
}

// Close ends a session. With discard the persisted draft is deleted too.
func (s *Service) Close(ctx context.Context, sessionID string, discard bool) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	formID := sess.Store().State().FormID
	s.deps.Sessions.Remove(sessionID)
	if discard && s.deps.Drafts != nil {
		if err := s.deps.Drafts.Delete(ctx, DraftKey(sessionID)); err != nil {
			return errors.Wrap(err, "discarding draft")
		}
	}
	s.record(ctx, event.NewSessionClosed(sessionID, formID))
	return nil
}

// State returns a snapshot of a session's form.
func (s *Service) State(sessionID string) (formstore.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return formstore.State{}, err
	}
	return sess.Store().State(), nil
}

// Form returns the backend payload of a session's form.
func (s *Service) Form(sessionID string) (schema.Form, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return schema.Form{}, err
	}
	return sess.Store().Form(), nil
}

const saveTimeout = 30 * time.Second

// Save creates the form on the backend, or updates it once it has an id.
// On failure the session state is left untouched so the save can be retried.
func (s *Service) Save(ctx context.Context, sessionID string) (schema.Form, error) {
	if s.deps.Forms == nil {
		return schema.Form{}, ErrNoBackend
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return schema.Form{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	form := sess.Store().Form()
	created := form.ID == ""
	var saved schema.Form
	if created {
		saved, err = s.deps.Forms.CreateForm(ctx, form)
	} else {
		saved, err = s.deps.Forms.UpdateForm(ctx, form.ID, form)
	}
	if err != nil {
		s.log.WithFields(log.Fields{"session_id": sessionID, "error": err}).Warn("saving form failed")
		return schema.Form{}, err
	}
	if saved.ID != "" && saved.ID != form.ID {
		sess.Store().SetFormID(saved.ID)
	}
	s.record(ctx, event.NewFormSaved(sessionID, event.FormSavedPayload{
		FormID:  saved.ID,
		Created: created,
		Title:   form.Title,
	}))
	return sess.Store().Form(), nil
}

// Import replaces a session's form with a payload after validating it
// against the CUE definition and the schema rules.
func (s *Service) Import(sessionID string, raw []byte) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if s.deps.Validator != nil {
		if err := s.deps.Validator.Validate(raw); err != nil {
			return err
		}
	}
	var f schema.Form
	if err := json.Unmarshal(raw, &f); err != nil {
		return &schema.ValidationError{
			Err:    schema.ErrInvalidPayload,
			Fields: []schema.FieldError{{Field: "", Error: err.Error()}},
		}
	}
	if err := schema.Validate(f.Schema); err != nil {
		return err
	}
	sess.Store().LoadForm(f)
	pruneCaptures(sess)
	return nil
}

// Preview renders a session's form, including captured grid values.
func (s *Service) Preview(w io.Writer, sessionID string, readOnly bool) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return s.deps.Renderer.Form(w, sess.Store().Form(), render.FormOptions{
		ReadOnly:  readOnly,
		Responses: sess.Responses(),
		BlobHref:  s.deps.BlobHref,
	})
}

func (s *Service) session(id string) (*session.Session, error) {
	sess := s.deps.Sessions.Get(id)
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// storeChanged announces a committed Form Store operation. Grid edits are
// announced by ApplyChecklist with the field id instead.
func (s *Service) storeChanged(sessionID, op string) {
	if op == "set_checklist_config" {
		return
	}
	formID := ""
	if sess := s.deps.Sessions.Get(sessionID); sess != nil {
		formID = sess.Store().State().FormID
	}
	s.record(context.Background(), event.NewFormChanged(sessionID, formID, op))
}

func (s *Service) record(ctx context.Context, c event.Change) {
	if s.deps.Recorder == nil {
		return
	}
	if err := s.deps.Recorder.Record(ctx, c); err != nil {
		s.log.WithFields(log.Fields{"event_type": c.EventType, "error": err}).Error("recording change failed")
	}
}
