package checklist

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/formstudio/internal/ordering"
)

// ColumnPatch carries a partial column update; nil fields are left alone.
type ColumnPatch struct {
	Name             *string     `json:"name,omitempty"`
	Type             *ColumnType `json:"type,omitempty"`
	AllowComments    *bool       `json:"allowComments,omitempty"`
	AllowAttachments *bool       `json:"allowAttachments,omitempty"`
}

// InputPatch carries a partial input update.
type InputPatch struct {
	Type    *InputType `json:"type,omitempty"`
	Label   *string    `json:"label,omitempty"`
	Min     *float64   `json:"min,omitempty"`
	Max     *float64   `json:"max,omitempty"`
	Options []string   `json:"options,omitempty"`
}

// SectionPatch carries a partial section update.
type SectionPatch struct {
	Title *string `json:"title,omitempty"`
}

// RowPatch carries a partial row update. Setting SectionID moves the row to
// the end of another section.
type RowPatch struct {
	Text      *string `json:"text,omitempty"`
	SectionID *string `json:"sectionId,omitempty"`
}

// Builder edits a Config. Every mutation writes back freshly allocated slices
// so values handed out earlier by Config never observe later edits. The
// boolean results report whether anything changed.
type Builder struct {
	cfg Config
}

// NewBuilder starts editing a copy of cfg.
func NewBuilder(cfg Config) *Builder {
	b := &Builder{cfg: cfg.Clone()}
	b.reweigh()
	return b
}

// Config returns a deep copy of the grid being edited.
func (b *Builder) Config() Config {
	return b.cfg.Clone()
}

func columnID(c Column) string   { return c.ID }
func inputID(i Input) string     { return i.ID }
func sectionID(s Section) string { return s.ID }
func rowID(r Row) string         { return r.ID }

// ── Columns ─────────────────────────────────────────────────────────────────

// AddColumn appends a default input column and returns its id.
func (b *Builder) AddColumn() string {
	col := NewColumn(fmt.Sprintf("Column %d", len(b.cfg.Columns)+1))
	b.cfg.Columns = ordering.Insert(b.cfg.Columns, len(b.cfg.Columns), col)
	b.reweigh()
	return col.ID
}

// UpdateColumn merges p into the column id.
func (b *Builder) UpdateColumn(id string, p ColumnPatch) bool {
	return b.mapColumn(id, func(col *Column) {
		if p.Name != nil {
			col.Name = *p.Name
		}
		if p.Type != nil && (*p.Type == ColumnInput || *p.Type == ColumnInfo) {
			col.Type = *p.Type
		}
		if p.AllowComments != nil {
			col.Capabilities.AllowComments = *p.AllowComments
		}
		if p.AllowAttachments != nil {
			col.Capabilities.AllowAttachments = *p.AllowAttachments
		}
	})
}

// RemoveColumn deletes a column. Row info entries keyed by the column id are
// kept; renderers only look up current column ids.
func (b *Builder) RemoveColumn(id string) bool {
	if ordering.IndexOf(b.cfg.Columns, columnID, id) < 0 {
		return false
	}
	b.cfg.Columns = ordering.Filter(b.cfg.Columns, func(c Column) bool { return c.ID != id })
	b.reweigh()
	return true
}

// ── Inputs ──────────────────────────────────────────────────────────────────

// AddInput appends an input of type t to a column and returns its id, or ""
// when the column does not exist or t is unknown.
func (b *Builder) AddInput(colID string, t InputType) string {
	if !t.Valid() {
		return ""
	}
	in := NewInput(t)
	if !b.mapColumn(colID, func(col *Column) {
		col.Inputs = ordering.Insert(col.Inputs, len(col.Inputs), in)
	}) {
		return ""
	}
	return in.ID
}

// UpdateInput merges p into an input. Switching type drops attributes that
// no longer apply.
func (b *Builder) UpdateInput(colID, inID string, p InputPatch) bool {
	found := false
	b.mapColumn(colID, func(col *Column) {
		i := ordering.IndexOf(col.Inputs, inputID, inID)
		if i < 0 {
			return
		}
		found = true
		inputs := append([]Input(nil), col.Inputs...)
		in := inputs[i]
		if p.Type != nil && p.Type.Valid() {
			in.Type = *p.Type
		}
		if p.Label != nil {
			in.Label = *p.Label
		}
		if p.Min != nil {
			v := *p.Min
			in.Min = &v
		}
		if p.Max != nil {
			v := *p.Max
			in.Max = &v
		}
		if p.Options != nil {
			in.Options = append([]string(nil), p.Options...)
		}
		normalizeInput(&in)
		inputs[i] = in
		col.Inputs = inputs
	})
	return found
}

// RemoveInput deletes an input from a column.
func (b *Builder) RemoveInput(colID, inID string) bool {
	found := false
	b.mapColumn(colID, func(col *Column) {
		if ordering.IndexOf(col.Inputs, inputID, inID) < 0 {
			return
		}
		found = true
		col.Inputs = ordering.Filter(col.Inputs, func(in Input) bool { return in.ID != inID })
	})
	return found
}

// ── Sections and rows ───────────────────────────────────────────────────────

// AddSection appends a section and returns its id. An empty title is
// replaced by "Section N".
func (b *Builder) AddSection(title string) string {
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Section %d", len(b.cfg.Sections)+1)
	}
	s := Section{ID: newID("sec"), Title: title}
	b.cfg.Sections = ordering.Insert(b.cfg.Sections, len(b.cfg.Sections), s)
	b.reweigh()
	return s.ID
}

// UpdateSection merges p into a section.
func (b *Builder) UpdateSection(id string, p SectionPatch) bool {
	i := ordering.IndexOf(b.cfg.Sections, sectionID, id)
	if i < 0 {
		return false
	}
	sections := append([]Section(nil), b.cfg.Sections...)
	if p.Title != nil {
		sections[i].Title = *p.Title
	}
	b.cfg.Sections = sections
	return true
}

// RemoveSection deletes a section together with all of its rows.
func (b *Builder) RemoveSection(id string) bool {
	if ordering.IndexOf(b.cfg.Sections, sectionID, id) < 0 {
		return false
	}
	b.cfg.Sections = ordering.Filter(b.cfg.Sections, func(s Section) bool { return s.ID != id })
	b.cfg.Rows = ordering.Filter(b.cfg.Rows, func(r Row) bool { return r.SectionID != id })
	b.reweigh()
	return true
}

// AddRow appends a row to a section and returns its id, or "" when the
// section does not exist.
func (b *Builder) AddRow(secID, text string) string {
	if ordering.IndexOf(b.cfg.Sections, sectionID, secID) < 0 {
		return ""
	}
	r := Row{ID: newID("row"), SectionID: secID, Text: text}
	b.cfg.Rows = ordering.Insert(b.cfg.Rows, len(b.cfg.Rows), r)
	b.reweigh()
	return r.ID
}

// UpdateRow merges p into a row. A SectionID naming a missing section is
// ignored.
func (b *Builder) UpdateRow(id string, p RowPatch) bool {
	i := ordering.IndexOf(b.cfg.Rows, rowID, id)
	if i < 0 {
		return false
	}
	rows := append([]Row(nil), b.cfg.Rows...)
	r := rows[i]
	if p.Text != nil {
		r.Text = *p.Text
	}
	if p.SectionID != nil && *p.SectionID != r.SectionID &&
		ordering.IndexOf(b.cfg.Sections, sectionID, *p.SectionID) >= 0 {
		r.SectionID = *p.SectionID
		rows = append(rows[:i:i], rows[i+1:]...)
		rows = append(rows, r)
	} else {
		rows[i] = r
	}
	b.cfg.Rows = rows
	b.reweigh()
	return true
}

// RemoveRow deletes a row.
func (b *Builder) RemoveRow(id string) bool {
	if ordering.IndexOf(b.cfg.Rows, rowID, id) < 0 {
		return false
	}
	b.cfg.Rows = ordering.Filter(b.cfg.Rows, func(r Row) bool { return r.ID != id })
	b.reweigh()
	return true
}

// SetRowInfo sets the static text shown in an info column for one row. An
// empty text clears the entry.
func (b *Builder) SetRowInfo(rID, colID, text string) bool {
	col, ok := b.cfg.Column(colID)
	if !ok || col.Type != ColumnInfo {
		return false
	}
	i := ordering.IndexOf(b.cfg.Rows, rowID, rID)
	if i < 0 {
		return false
	}
	rows := append([]Row(nil), b.cfg.Rows...)
	info := make(map[string]string, len(rows[i].Info)+1)
	for k, v := range rows[i].Info {
		info[k] = v
	}
	if text == "" {
		delete(info, colID)
	} else {
		info[colID] = text
	}
	if len(info) == 0 {
		info = nil
	}
	rows[i].Info = info
	b.cfg.Rows = rows
	return true
}

// MoveSection drops section activeID onto the position of overID.
func (b *Builder) MoveSection(activeID, overID string) bool {
	out, ok := ordering.Move(b.cfg.Sections, sectionID, activeID, overID)
	if !ok {
		return false
	}
	b.cfg.Sections = out
	b.reweigh()
	return true
}

// MoveRow drops row activeID onto the position of overID. Dropping onto a
// row of another section moves the row into that section.
func (b *Builder) MoveRow(activeID, overID string) bool {
	over, ok := b.cfg.Row(overID)
	if !ok {
		return false
	}
	out, ok := ordering.Move(b.cfg.Rows, rowID, activeID, overID)
	if !ok {
		return false
	}
	i := ordering.IndexOf(out, rowID, activeID)
	out[i].SectionID = over.SectionID
	b.cfg.Rows = out
	b.reweigh()
	return true
}

// DragEnd resolves one drag gesture on the roles tab. Columns are checked
// first, then the inputs of every column; only the first match is moved.
func (b *Builder) DragEnd(activeID, overID string) bool {
	if activeID == "" || overID == "" || activeID == overID {
		return false
	}
	if ordering.IndexOf(b.cfg.Columns, columnID, activeID) >= 0 {
		out, ok := ordering.Move(b.cfg.Columns, columnID, activeID, overID)
		if !ok {
			return false
		}
		b.cfg.Columns = out
		b.reweigh()
		return true
	}
	for _, col := range b.cfg.Columns {
		if ordering.IndexOf(col.Inputs, inputID, activeID) < 0 {
			continue
		}
		moved := false
		b.mapColumn(col.ID, func(c *Column) {
			c.Inputs, moved = ordering.Move(c.Inputs, inputID, activeID, overID)
		})
		return moved
	}
	return false
}

// ── Templates ───────────────────────────────────────────────────────────────

// SaveTemplate captures the current columns as a named template.
func (b *Builder) SaveTemplate(name string) (Template, error) {
	return NewTemplate(name, b.cfg.Columns)
}

// LoadTemplate replaces the current columns with the template's columns.
// Sections and rows are untouched.
func (b *Builder) LoadTemplate(t Template) {
	b.cfg.Columns = CloneColumns(t.Columns)
	b.reweigh()
}

// mapColumn applies fn to a copy of the column id and writes back a fresh
// column slice.
func (b *Builder) mapColumn(id string, fn func(*Column)) bool {
	i := ordering.IndexOf(b.cfg.Columns, columnID, id)
	if i < 0 {
		return false
	}
	cols := append([]Column(nil), b.cfg.Columns...)
	col := cols[i]
	fn(&col)
	ordering.Reweigh(col.Inputs, func(in *Input, n int) { in.Order = n })
	cols[i] = col
	b.cfg.Columns = cols
	return true
}

func (b *Builder) reweigh() {
	ordering.Reweigh(b.cfg.Columns, func(c *Column, n int) { c.Order = n })
	for i := range b.cfg.Columns {
		ordering.Reweigh(b.cfg.Columns[i].Inputs, func(in *Input, n int) { in.Order = n })
	}
	ordering.Reweigh(b.cfg.Sections, func(s *Section, n int) { s.Order = n })
	perSection := make(map[string]int, len(b.cfg.Sections))
	for i := range b.cfg.Rows {
		r := &b.cfg.Rows[i]
		r.Order = perSection[r.SectionID]
		perSection[r.SectionID]++
	}
}
