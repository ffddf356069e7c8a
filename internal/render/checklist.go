package render

import (
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/numbering"
)

type gridView struct {
	Prefix   string
	Columns  []checklist.Column
	Sections []gridSectionView
	Span     int
}

type gridSectionView struct {
	ID     string
	Title  string
	Number string
	Rows   []gridRowView
}

type gridRowView struct {
	ID     string
	Text   string
	Number string
	Cells  []cellView
}

type cellView struct {
	Info               string
	Inputs             []template.HTML
	ReadOnly           bool
	CommentsEnabled    bool
	CommentName        string
	Comment            string
	CommentOpen        bool
	AttachmentsEnabled bool
	AttachmentName     string
	Attachments        []attachmentView
	HTML               template.HTML
}

type attachmentView struct {
	Name string
	Href template.URL
}

type inputView struct {
	Name     string
	Label    string
	Checked  bool
	Text     string
	Min      string
	Max      string
	Options  []optionView
	ReadOnly bool
}

type optionView struct {
	Value    string
	Selected bool
}

// InputName is the form control name of one input of a cell.
func InputName(prefix, rowID, colID, inputID string) string {
	return strings.Join([]string{prefix, rowID, colID, inputID}, ".")
}

// CommentName is the form control name of a cell comment.
func CommentName(prefix, rowID, colID string) string {
	return strings.Join([]string{prefix, rowID, colID}, ".") + "#comment"
}

// AttachmentName is the multipart field name for files attached to a cell.
func AttachmentName(prefix, rowID, colID string) string {
	return strings.Join([]string{prefix, rowID, colID}, ".") + "#attachments"
}

func (r *Renderer) grid(cfg checklist.Config, opts GridOptions) (template.HTML, error) {
	s := opts.Settings.WithDefaults()
	view := gridView{Prefix: opts.Prefix, Columns: cfg.Columns, Span: len(cfg.Columns) + 1}
	if len(cfg.Columns) == 0 {
		return r.exec("checklist", view)
	}
	for si, sec := range cfg.Sections {
		sv := gridSectionView{ID: sec.ID, Title: sec.Title}
		secNum := ""
		if s.GridSectionNumberingEnabled {
			secNum = numbering.Format(s.GridSectionNumberingSystem, si+1)
			sv.Number = secNum
		}
		for ri, row := range cfg.RowsIn(sec.ID) {
			rv := gridRowView{ID: row.ID, Text: row.Text}
			if s.GridItemNumberingEnabled {
				rv.Number = numbering.Label(secNum, numbering.Format(s.GridItemNumberingSystem, ri+1))
			}
			for _, col := range cfg.Columns {
				cell, err := r.cell(row, col, opts)
				if err != nil {
					return "", err
				}
				rv.Cells = append(rv.Cells, cell)
			}
			sv.Rows = append(sv.Rows, rv)
		}
		view.Sections = append(view.Sections, sv)
	}
	return r.exec("checklist", view)
}

// cell renders one (row, column) pair. Info columns are static text whatever
// the ReadOnly flag says.
func (r *Renderer) cell(row checklist.Row, col checklist.Column, opts GridOptions) (cellView, error) {
	if col.Type == checklist.ColumnInfo {
		cv := cellView{Info: row.Info[col.ID], ReadOnly: true}
		html, err := r.exec("cell-info", cv)
		cv.HTML = html
		return cv, err
	}

	data := opts.Responses.Cell(row.ID, col.ID)
	cv := cellView{
		ReadOnly:           opts.ReadOnly,
		CommentsEnabled:    col.Capabilities.AllowComments,
		CommentName:        CommentName(opts.Prefix, row.ID, col.ID),
		Comment:            data.Comment,
		CommentOpen:        strings.TrimSpace(data.Comment) != "",
		AttachmentsEnabled: col.Capabilities.AllowAttachments,
		AttachmentName:     AttachmentName(opts.Prefix, row.ID, col.ID),
	}
	for _, a := range data.Attachments {
		href := a.URL
		if opts.BlobHref != nil {
			href = opts.BlobHref(a.URL)
		}
		cv.Attachments = append(cv.Attachments, attachmentView{Name: a.Name, Href: template.URL(href)})
	}
	for _, in := range col.Inputs {
		name, ok := inputTemplates[in.Type]
		if !ok {
			continue
		}
		html, err := r.exec(name, newInputView(in, data.Values[in.ID], InputName(opts.Prefix, row.ID, col.ID, in.ID), opts.ReadOnly))
		if err != nil {
			return cellView{}, err
		}
		cv.Inputs = append(cv.Inputs, html)
	}
	html, err := r.exec("cell-input", cv)
	cv.HTML = html
	return cv, err
}

func newInputView(in checklist.Input, v any, name string, readOnly bool) inputView {
	iv := inputView{
		Name:     name,
		Label:    in.Label,
		Min:      formatFloatPtr(in.Min),
		Max:      formatFloatPtr(in.Max),
		ReadOnly: readOnly,
	}
	switch val := v.(type) {
	case bool:
		iv.Checked = val
	case float64:
		iv.Text = strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		iv.Text = val
	}
	for _, o := range in.Options {
		iv.Options = append(iv.Options, optionView{Value: o, Selected: o == iv.Text})
	}
	return iv
}

// ParseChecklistForm decodes a submitted fill-in form for cfg. Checkboxes
// are always reported (absent means false); other inputs only when their
// control was present. A present but empty text, date or select input is
// reported as "" and an empty number as nil, which clears it on Merge.
// File inputs carry the file name only. Numbers that do not parse are
// skipped. A cell with any control present carries its comment, possibly
// empty.
func ParseChecklistForm(cfg checklist.Config, prefix string, values url.Values) checklist.Responses {
	out := checklist.Responses{}
	for _, row := range cfg.Rows {
		for _, col := range cfg.Columns {
			if col.Type == checklist.ColumnInfo {
				continue
			}
			cell := checklist.CellData{}
			submitted := false
			for _, in := range col.Inputs {
				raw, present := values[InputName(prefix, row.ID, col.ID, in.ID)]
				text := ""
				if present && len(raw) > 0 {
					text = raw[0]
				}
				var v any
				switch in.Type {
				case checklist.InputCheckbox:
					v = present && text != "" && text != "off"
				case checklist.InputNumber:
					if !present {
						continue
					}
					if strings.TrimSpace(text) != "" {
						f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
						if err != nil {
							continue
						}
						v = f
					}
				default:
					if !present {
						continue
					}
					v = text
				}
				if cell.Values == nil {
					cell.Values = map[string]any{}
				}
				cell.Values[in.ID] = v
				submitted = true
			}
			if col.Capabilities.AllowComments {
				if raw, ok := values[CommentName(prefix, row.ID, col.ID)]; ok {
					submitted = true
					if len(raw) > 0 {
						cell.Comment = raw[0]
					}
				}
			}
			if !submitted {
				continue
			}
			if out[row.ID] == nil {
				out[row.ID] = map[string]checklist.CellData{}
			}
			out[row.ID][col.ID] = cell
		}
	}
	return out
}
