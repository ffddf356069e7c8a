package editor

import (
	"github.com/pkg/errors"

	"github.com/matthewbaird/formstudio/internal/formstore"
	"github.com/matthewbaird/formstudio/internal/schema"
	"github.com/matthewbaird/formstudio/internal/session"
)

// Op is one named Form Store operation with its arguments, as sent by an
// editor client: {"op": "add_field", "type": "text", "section": "page-1"}.
type Op struct {
	Op       string                `json:"op" validate:"required"`
	ID       string                `json:"id,omitempty"`
	ActiveID string                `json:"activeId,omitempty"`
	OverID   string                `json:"overId,omitempty"`
	Type     schema.FieldType      `json:"type,omitempty"`
	Section  string                `json:"section,omitempty"`
	Index    *int                  `json:"index,omitempty"`
	Value    string                `json:"value,omitempty"`
	Field    *schema.FieldPatch    `json:"field,omitempty"`
	Page     *schema.SectionPatch  `json:"page,omitempty"`
	Settings *schema.SettingsPatch `json:"settings,omitempty"`
}

// Result reports the outcome of an operation. ID carries the id of a
// created field or section.
type Result struct {
	Changed bool   `json:"changed"`
	ID      string `json:"id,omitempty"`
}

type opFunc func(st *formstore.Store, op Op) Result

func changed(ok bool) Result { return Result{Changed: ok} }

func created(id string) Result { return Result{Changed: id != "", ID: id} }

// formOps maps operation names to Form Store calls.
var formOps = map[string]opFunc{
	"set_title": func(st *formstore.Store, op Op) Result {
		return changed(st.SetTitle(op.Value))
	},
	"set_description": func(st *formstore.Store, op Op) Result {
		return changed(st.SetDescription(op.Value))
	},
	"set_status": func(st *formstore.Store, op Op) Result {
		return changed(st.SetStatus(schema.Status(op.Value)))
	},
	"update_settings": func(st *formstore.Store, op Op) Result {
		if op.Settings == nil {
			return Result{}
		}
		return changed(st.UpdateSettings(*op.Settings))
	},
	"add_section": func(st *formstore.Store, _ Op) Result {
		return created(st.AddSection())
	},
	"update_section": func(st *formstore.Store, op Op) Result {
		if op.Page == nil {
			return Result{}
		}
		return changed(st.UpdateSection(op.ID, *op.Page))
	},
	"remove_section": func(st *formstore.Store, op Op) Result {
		return changed(st.RemoveSection(op.ID))
	},
	"set_active_section": func(st *formstore.Store, op Op) Result {
		return changed(st.SetActiveSection(op.ID))
	},
	"reorder_sections": func(st *formstore.Store, op Op) Result {
		return changed(st.ReorderSections(op.ActiveID, op.OverID))
	},
	"add_field": func(st *formstore.Store, op Op) Result {
		section := op.Section
		if section == "" {
			section = st.State().ActiveSectionID
		}
		return created(st.AddField(op.Type, section, op.Index))
	},
	"update_field": func(st *formstore.Store, op Op) Result {
		if op.Field == nil {
			return Result{}
		}
		return changed(st.UpdateField(op.ID, *op.Field))
	},
	"remove_field": func(st *formstore.Store, op Op) Result {
		return changed(st.RemoveField(op.ID))
	},
	"duplicate_field": func(st *formstore.Store, op Op) Result {
		return created(st.DuplicateField(op.ID))
	},
	"move_field": func(st *formstore.Store, op Op) Result {
		return changed(st.MoveField(op.ActiveID, op.OverID))
	},
	"reset_form": func(st *formstore.Store, _ Op) Result {
		st.ResetForm()
		return Result{Changed: true}
	},
}

// OpNames lists the supported Form Store operations.
func OpNames() []string {
	out := make([]string, 0, len(formOps))
	for name := range formOps {
		out = append(out, name)
	}
	return out
}

// Apply runs one operation on a session's form. Operations on unknown ids
// are no-ops reported with Changed false; only unknown operation names fail.
func (s *Service) Apply(sessionID string, op Op) (Result, formstore.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return Result{}, formstore.State{}, err
	}
	fn, ok := formOps[op.Op]
	if !ok {
		return Result{}, formstore.State{}, errors.Wrapf(ErrUnknownOp, "%q", op.Op)
	}
	st := sess.Store()
	res := fn(st, op)
	if res.Changed {
		pruneCaptures(sess)
	}
	return res, st.State(), nil
}

// pruneCaptures releases captures of checklist fields that no longer exist.
func pruneCaptures(sess *session.Session) {
	live := map[string]bool{}
	for _, f := range sess.Store().State().Fields {
		if f.Type == schema.TypeChecklist {
			live[f.ID] = true
		}
	}
	sess.Prune(func(id string) bool { return live[id] })
}
