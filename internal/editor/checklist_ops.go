package editor

import (
	"context"
	"net/url"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/pkg/errors"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/event"
	"github.com/matthewbaird/formstudio/internal/render"
	"github.com/matthewbaird/formstudio/internal/report"
	"github.com/matthewbaird/formstudio/internal/schema"
	"github.com/matthewbaird/formstudio/internal/session"
)

// ChecklistOp is one grid edit: {"op": "add_row", "sectionId": "...", "text": "Walls"}.
type ChecklistOp struct {
	Op         string                  `json:"op" validate:"required"`
	ColumnID   string                  `json:"columnId,omitempty"`
	InputID    string                  `json:"inputId,omitempty"`
	SectionID  string                  `json:"sectionId,omitempty"`
	RowID      string                  `json:"rowId,omitempty"`
	ActiveID   string                  `json:"activeId,omitempty"`
	OverID     string                  `json:"overId,omitempty"`
	InputType  checklist.InputType     `json:"inputType,omitempty"`
	Text       string                  `json:"text,omitempty"`
	Name       string                  `json:"name,omitempty"`
	TemplateID string                  `json:"templateId,omitempty"`
	Column     *checklist.ColumnPatch  `json:"column,omitempty"`
	Input      *checklist.InputPatch   `json:"input,omitempty"`
	Section    *checklist.SectionPatch `json:"section,omitempty"`
	Row        *checklist.RowPatch     `json:"row,omitempty"`
}

// ChecklistResult is the outcome of a grid edit.
type ChecklistResult struct {
	Result
	Config   checklist.Config    `json:"config"`
	Template *checklist.Template `json:"template,omitempty"`
}

type checklistOpFunc func(ctx context.Context, s *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error)

func gridChanged(ok bool) (ChecklistResult, error) {
	return ChecklistResult{Result: changed(ok)}, nil
}

func gridCreated(id string) (ChecklistResult, error) {
	return ChecklistResult{Result: created(id)}, nil
}

// checklistOps maps grid operation names to Builder calls.
var checklistOps = map[string]checklistOpFunc{
	"add_column": func(_ context.Context, _ *Service, b *checklist.Builder, _ ChecklistOp) (ChecklistResult, error) {
		return gridCreated(b.AddColumn())
	},
	"update_column": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		if op.Column == nil {
			return gridChanged(false)
		}
		return gridChanged(b.UpdateColumn(op.ColumnID, *op.Column))
	},
	"remove_column": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.RemoveColumn(op.ColumnID))
	},
	"add_input": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		t := op.InputType
		if t == "" {
			t = checklist.InputCheckbox
		}
		return gridCreated(b.AddInput(op.ColumnID, t))
	},
	"update_input": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		if op.Input == nil {
			return gridChanged(false)
		}
		return gridChanged(b.UpdateInput(op.ColumnID, op.InputID, *op.Input))
	},
	"remove_input": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.RemoveInput(op.ColumnID, op.InputID))
	},
	"add_section": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridCreated(b.AddSection(op.Text))
	},
	"update_section": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		if op.Section == nil {
			return gridChanged(false)
		}
		return gridChanged(b.UpdateSection(op.SectionID, *op.Section))
	},
	"remove_section": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.RemoveSection(op.SectionID))
	},
	"add_row": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridCreated(b.AddRow(op.SectionID, op.Text))
	},
	"update_row": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		if op.Row == nil {
			return gridChanged(false)
		}
		return gridChanged(b.UpdateRow(op.RowID, *op.Row))
	},
	"remove_row": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.RemoveRow(op.RowID))
	},
	"set_row_info": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.SetRowInfo(op.RowID, op.ColumnID, op.Text))
	},
	"move_section": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.MoveSection(op.ActiveID, op.OverID))
	},
	"move_row": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.MoveRow(op.ActiveID, op.OverID))
	},
	"drag_end": func(_ context.Context, _ *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		return gridChanged(b.DragEnd(op.ActiveID, op.OverID))
	},
	"save_template": func(ctx context.Context, s *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		t, err := b.SaveTemplate(op.Name)
		if err != nil {
			return ChecklistResult{}, err
		}
		if err := s.deps.Templates.SaveTemplate(ctx, t); err != nil {
			return ChecklistResult{}, errors.Wrap(err, "saving template")
		}
		return ChecklistResult{Template: &t}, nil
	},
	"load_template": func(ctx context.Context, s *Service, b *checklist.Builder, op ChecklistOp) (ChecklistResult, error) {
		t, err := s.deps.Templates.GetTemplate(ctx, op.TemplateID)
		if err != nil {
			return ChecklistResult{}, err
		}
		b.LoadTemplate(t)
		return ChecklistResult{Result: Result{Changed: true}, Template: &t}, nil
	},
}

// ApplyChecklist runs one grid edit on a checklist field and writes the grid
// back into the session's form. The edit runs against the stored grid under
// the store lock.
func (s *Service) ApplyChecklist(ctx context.Context, sessionID, fieldID string, op ChecklistOp) (ChecklistResult, error) {
	sess, _, err := s.checklistField(sessionID, fieldID)
	if err != nil {
		return ChecklistResult{}, err
	}
	fn, ok := checklistOps[op.Op]
	if !ok {
		return ChecklistResult{}, errors.Wrapf(ErrUnknownOp, "%q", op.Op)
	}
	var res ChecklistResult
	found, _ := sess.Store().UpdateChecklistConfig(fieldID, func(b *checklist.Builder) bool {
		res, err = fn(ctx, s, b, op)
		if err != nil {
			return false
		}
		res.Config = b.Config()
		return res.Changed
	})
	if err != nil {
		return ChecklistResult{}, err
	}
	if !found {
		return ChecklistResult{}, ErrFieldNotFound
	}
	if res.Changed {
		sess.Capture(fieldID, res.Config, s.deps.Blobs)
		s.record(ctx, event.NewChecklistChanged(sessionID, sess.Store().State().FormID, fieldID, op.Op))
	}
	return res, nil
}

// CellOp is one fill-in action on a grid cell.
type CellOp struct {
	Op       string `json:"op" validate:"required,oneof=set_value toggle set_comment remove_attachment"`
	RowID    string `json:"rowId" validate:"required"`
	ColumnID string `json:"columnId" validate:"required"`
	InputID  string `json:"inputId,omitempty"`
	Value    any    `json:"value,omitempty"`
	Comment  string `json:"comment,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// ApplyCell runs one fill-in action and returns the field's responses.
func (s *Service) ApplyCell(ctx context.Context, sessionID, fieldID string, op CellOp) (checklist.Responses, error) {
	sess, field, err := s.checklistField(sessionID, fieldID)
	if err != nil {
		return nil, err
	}
	c := sess.Capture(fieldID, *field.ChecklistConfig, s.deps.Blobs)
	switch op.Op {
	case "set_value":
		err = c.SetValue(op.RowID, op.ColumnID, op.InputID, op.Value)
	case "toggle":
		_, err = c.Toggle(op.RowID, op.ColumnID, op.InputID)
	case "set_comment":
		err = c.SetComment(op.RowID, op.ColumnID, op.Comment)
	case "remove_attachment":
		err = c.RemoveAttachment(op.RowID, op.ColumnID, op.Index)
	default:
		err = errors.Wrapf(ErrUnknownOp, "%q", op.Op)
	}
	if err != nil {
		return nil, err
	}
	s.record(ctx, event.NewResponsesChanged(sessionID, sess.Store().State().FormID, fieldID, op.Op))
	return c.Responses(), nil
}

// SubmitResponses merges a submitted fill-in form into a field's capture.
func (s *Service) SubmitResponses(ctx context.Context, sessionID, fieldID string, values url.Values) (checklist.Responses, error) {
	sess, field, err := s.checklistField(sessionID, fieldID)
	if err != nil {
		return nil, err
	}
	cfg := *field.ChecklistConfig
	c := sess.Capture(fieldID, cfg, s.deps.Blobs)
	if err := c.Merge(render.ParseChecklistForm(cfg, fieldID, values)); err != nil {
		return nil, err
	}
	s.record(ctx, event.NewResponsesChanged(sessionID, sess.Store().State().FormID, fieldID, "submit"))
	return c.Responses(), nil
}

// AddAttachment stores a file on a cell of a checklist field.
func (s *Service) AddAttachment(ctx context.Context, sessionID, fieldID, rowID, colID, name, contentType string, data []byte) (checklist.Attachment, error) {
	sess, field, err := s.checklistField(sessionID, fieldID)
	if err != nil {
		return checklist.Attachment{}, err
	}
	c := sess.Capture(fieldID, *field.ChecklistConfig, s.deps.Blobs)
	att, err := c.AddAttachment(rowID, colID, name, contentType, data)
	if err != nil {
		return checklist.Attachment{}, err
	}
	s.record(ctx, event.NewResponsesChanged(sessionID, sess.Store().State().FormID, fieldID, "add_attachment"))
	return att, nil
}

// Responses returns what has been captured for a checklist field.
func (s *Service) Responses(sessionID, fieldID string) (checklist.Responses, error) {
	sess, field, err := s.checklistField(sessionID, fieldID)
	if err != nil {
		return nil, err
	}
	return sess.Capture(fieldID, *field.ChecklistConfig, s.deps.Blobs).Responses(), nil
}

// Workbook exports a checklist field's responses as a spreadsheet.
func (s *Service) Workbook(sessionID, fieldID string) (*excelize.File, error) {
	sess, field, err := s.checklistField(sessionID, fieldID)
	if err != nil {
		return nil, err
	}
	resp := sess.Capture(fieldID, *field.ChecklistConfig, s.deps.Blobs).Responses()
	return report.ChecklistWorkbook(field, resp, sess.Store().State().Settings)
}

func (s *Service) checklistField(sessionID, fieldID string) (*session.Session, schema.Field, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, schema.Field{}, err
	}
	for _, f := range sess.Store().State().Fields {
		if f.ID != fieldID {
			continue
		}
		if f.Type != schema.TypeChecklist {
			return nil, schema.Field{}, ErrNotChecklist
		}
		if f.ChecklistConfig == nil {
			f.ChecklistConfig = &checklist.Config{}
		}
		return sess, f, nil
	}
	return nil, schema.Field{}, ErrFieldNotFound
}
