// Package checklist models the grid ("inspection checklist") field: columns of
// typed inputs or static info, rows grouped into sections, reusable column
// templates and the per-cell values captured while filling a grid in.
package checklist

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ColumnType distinguishes fill-in columns from static descriptive ones.
type ColumnType string

const (
	ColumnInput ColumnType = "input"
	ColumnInfo  ColumnType = "info"
)

// InputType is the control kind of a single input inside a column.
type InputType string

const (
	InputCheckbox InputType = "checkbox"
	InputText     InputType = "text"
	InputDate     InputType = "date"
	InputDateTime InputType = "datetime"
	InputNumber   InputType = "number"
	InputFile     InputType = "file"
	InputSelect   InputType = "select"
)

// InputTypes lists every input kind in display order.
var InputTypes = []InputType{
	InputCheckbox, InputText, InputDate, InputDateTime, InputNumber, InputFile, InputSelect,
}

// Valid reports whether t is a known input kind.
func (t InputType) Valid() bool {
	for _, it := range InputTypes {
		if it == t {
			return true
		}
	}
	return false
}

// Config is the complete definition of one grid.
type Config struct {
	Columns  []Column  `json:"columns"`
	Sections []Section `json:"sections"`
	Rows     []Row     `json:"rows"`
}

// Column is one vertical slice of the grid.
type Column struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         ColumnType   `json:"type"`
	Inputs       []Input      `json:"inputs"`
	Capabilities Capabilities `json:"capabilities"`
	Order        int          `json:"order"`
}

// Capabilities are per-column features available regardless of column type.
type Capabilities struct {
	AllowComments    bool `json:"allowComments"`
	AllowAttachments bool `json:"allowAttachments"`
}

// Input is one control inside an input column.
type Input struct {
	ID      string    `json:"id"`
	Type    InputType `json:"type"`
	Label   string    `json:"label"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Options []string  `json:"options,omitempty"`
	Order   int       `json:"order"`
}

// Section groups rows under a collapsible heading.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
}

// Row is one checklist item. Info holds static text keyed by column id for
// info-typed columns.
type Row struct {
	ID        string            `json:"id"`
	SectionID string            `json:"sectionId"`
	Text      string            `json:"text"`
	Order     int               `json:"order"`
	Info      map[string]string `json:"info,omitempty"`
}

func newID(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV7()).String()
}

// NewColumn returns an input column with one checkbox and both capabilities on.
func NewColumn(name string) Column {
	return Column{
		ID:   newID("col"),
		Name: name,
		Type: ColumnInput,
		Inputs: []Input{
			NewInput(InputCheckbox),
		},
		Capabilities: Capabilities{AllowComments: true, AllowAttachments: true},
	}
}

// NewInput returns an input of type t with the defaults for that type.
func NewInput(t InputType) Input {
	in := Input{ID: newID("in"), Type: t, Label: defaultInputLabel(t)}
	normalizeInput(&in)
	return in
}

func defaultInputLabel(t InputType) string {
	switch t {
	case InputCheckbox:
		return "Done"
	case InputDate, InputDateTime:
		return "Date"
	case InputFile:
		return "File"
	default:
		return ""
	}
}

// normalizeInput drops attributes that do not apply to the input's type.
func normalizeInput(in *Input) {
	if in.Type != InputNumber {
		in.Min, in.Max = nil, nil
	}
	if in.Type != InputSelect {
		in.Options = nil
	} else if len(in.Options) == 0 {
		in.Options = []string{""}
	}
}

// Column returns the column with the given id.
func (c Config) Column(id string) (Column, bool) {
	for _, col := range c.Columns {
		if col.ID == id {
			return col, true
		}
	}
	return Column{}, false
}

// Row returns the row with the given id.
func (c Config) Row(id string) (Row, bool) {
	for _, r := range c.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// RowsIn returns the rows of a section in display order.
func (c Config) RowsIn(sectionID string) []Row {
	var out []Row
	for _, r := range c.Rows {
		if r.SectionID == sectionID {
			out = append(out, r)
		}
	}
	return out
}

// Input returns the input with the given id inside a column.
func (col Column) Input(id string) (Input, bool) {
	for _, in := range col.Inputs {
		if in.ID == id {
			return in, true
		}
	}
	return Input{}, false
}

// Clone returns a deep copy; the result shares no slices or maps with c.
func (c Config) Clone() Config {
	b, err := json.Marshal(c)
	if err != nil {
		return Config{}
	}
	var out Config
	if err := json.Unmarshal(b, &out); err != nil {
		return Config{}
	}
	return out
}

// CloneColumns deep-copies a column slice.
func CloneColumns(cols []Column) []Column {
	return Config{Columns: cols}.Clone().Columns
}
