// Package schema defines the form model exchanged with the backend: fields,
// pages (sections), numbering settings and the serialised form payload.
package schema

import (
	"github.com/google/uuid"

	"github.com/matthewbaird/formstudio/internal/checklist"
)

// FieldType is the closed set of field kinds.
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeTextarea  FieldType = "textarea"
	TypeNumber    FieldType = "number"
	TypeDecimal   FieldType = "decimal"
	TypeDropdown  FieldType = "dropdown"
	TypeRadio     FieldType = "radio"
	TypeCheckbox  FieldType = "checkbox"
	TypeDate      FieldType = "date"
	TypeTime      FieldType = "time"
	TypeDateTime  FieldType = "datetime"
	TypeFile      FieldType = "file"
	TypeImage     FieldType = "image"
	TypeSection   FieldType = "section"
	TypeSignature FieldType = "signature"
	TypeChecklist FieldType = "inspection_checklist"
)

// Kind describes the attributes a field type carries.
type Kind struct {
	Type  FieldType
	Label string // toolbar label and default field label
	// Choice kinds carry a non-empty Options list.
	Choice bool
	// Numeric kinds may carry Min, Max and Precision.
	Numeric bool
	// Checklist kinds carry an embedded grid config.
	Checklist bool
	// Display kinds capture no value.
	Display bool
}

// FieldTypes lists every kind in toolbar order.
var FieldTypes = []FieldType{
	TypeText, TypeTextarea, TypeNumber, TypeDecimal, TypeDropdown, TypeRadio,
	TypeCheckbox, TypeDate, TypeTime, TypeDateTime, TypeFile, TypeImage,
	TypeSection, TypeSignature, TypeChecklist,
}

var kinds = map[FieldType]Kind{
	TypeText:      {Type: TypeText, Label: "Short answer"},
	TypeTextarea:  {Type: TypeTextarea, Label: "Paragraph"},
	TypeNumber:    {Type: TypeNumber, Label: "Number", Numeric: true},
	TypeDecimal:   {Type: TypeDecimal, Label: "Decimal", Numeric: true},
	TypeDropdown:  {Type: TypeDropdown, Label: "Dropdown", Choice: true},
	TypeRadio:     {Type: TypeRadio, Label: "Multiple choice", Choice: true},
	TypeCheckbox:  {Type: TypeCheckbox, Label: "Checkboxes", Choice: true},
	TypeDate:      {Type: TypeDate, Label: "Date"},
	TypeTime:      {Type: TypeTime, Label: "Time"},
	TypeDateTime:  {Type: TypeDateTime, Label: "Date & time"},
	TypeFile:      {Type: TypeFile, Label: "File upload"},
	TypeImage:     {Type: TypeImage, Label: "Image"},
	TypeSection:   {Type: TypeSection, Label: "Section break", Display: true},
	TypeSignature: {Type: TypeSignature, Label: "Signature"},
	TypeChecklist: {Type: TypeChecklist, Label: "Inspection checklist", Checklist: true},
}

// KindOf returns the descriptor of t.
func KindOf(t FieldType) (Kind, bool) {
	k, ok := kinds[t]
	return k, ok
}

// Valid reports whether t is a known kind.
func (t FieldType) Valid() bool {
	_, ok := kinds[t]
	return ok
}

// Field is one question or element of a form.
type Field struct {
	ID              string            `json:"id"`
	Type            FieldType         `json:"type"`
	Label           string            `json:"label"`
	Placeholder     string            `json:"placeholder,omitempty"`
	Required        bool              `json:"required"`
	Section         string            `json:"section"`
	Options         []string          `json:"options,omitempty"`
	Min             *float64          `json:"min,omitempty"`
	Max             *float64          `json:"max,omitempty"`
	Precision       *int              `json:"precision,omitempty"`
	ChecklistConfig *checklist.Config `json:"checklistConfig,omitempty"`
	Order           int               `json:"order"`
}

// FieldPatch is a partial field update; nil members are left alone.
// Changing Type re-applies the defaults of the new kind.
type FieldPatch struct {
	Type        *FieldType `json:"type,omitempty"`
	Label       *string    `json:"label,omitempty"`
	Placeholder *string    `json:"placeholder,omitempty"`
	Required    *bool      `json:"required,omitempty"`
	Options     []string   `json:"options,omitempty"`
	Min         *float64   `json:"min,omitempty"`
	Max         *float64   `json:"max,omitempty"`
	Precision   *int       `json:"precision,omitempty"`
	// ClearRange removes Min and Max before the patch is applied.
	ClearRange bool `json:"clearRange,omitempty"`
}

// NewFieldID returns a time-ordered field id.
func NewFieldID() string {
	return "field-" + uuid.Must(uuid.NewV7()).String()
}

// NewField builds a field of type t in section with the defaults of its kind.
func NewField(t FieldType, section string) Field {
	k := kinds[t]
	f := Field{
		ID:      NewFieldID(),
		Type:    t,
		Label:   k.Label,
		Section: section,
	}
	applyDefaults(&f)
	return f
}

// Apply merges p into f and normalises the result. Choice fields patched
// to no options get a single empty option back.
func (f *Field) Apply(p FieldPatch) {
	if p.Type != nil && p.Type.Valid() && *p.Type != f.Type {
		f.Type = *p.Type
		applyDefaults(f)
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Placeholder != nil {
		f.Placeholder = *p.Placeholder
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Options != nil {
		f.Options = append([]string(nil), p.Options...)
	}
	if p.ClearRange {
		f.Min, f.Max = nil, nil
	}
	if p.Min != nil {
		v := *p.Min
		f.Min = &v
	}
	if p.Max != nil {
		v := *p.Max
		f.Max = &v
	}
	if p.Precision != nil {
		v := *p.Precision
		f.Precision = &v
	}
	Normalize(f)
	applyDefaults(f)
}

// Normalize drops attributes that do not belong to the field's kind.
func Normalize(f *Field) {
	k := kinds[f.Type]
	if !k.Choice {
		f.Options = nil
	}
	if !k.Numeric {
		f.Min, f.Max, f.Precision = nil, nil, nil
	}
	if f.Type != TypeDecimal {
		f.Precision = nil
	}
	if !k.Checklist {
		f.ChecklistConfig = nil
	}
	if k.Display {
		f.Required = false
		f.Placeholder = ""
	}
}

func applyDefaults(f *Field) {
	k := kinds[f.Type]
	if k.Choice && len(f.Options) == 0 {
		f.Options = []string{""}
	}
	if f.Type == TypeDecimal && f.Precision == nil {
		p := 2
		f.Precision = &p
	}
	if k.Checklist && f.ChecklistConfig == nil {
		f.ChecklistConfig = &checklist.Config{
			Columns:  []checklist.Column{},
			Sections: []checklist.Section{},
			Rows:     []checklist.Row{},
		}
	}
	Normalize(f)
}

// Clone deep-copies f.
func (f Field) Clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]string(nil), f.Options...)
	}
	if f.Min != nil {
		v := *f.Min
		out.Min = &v
	}
	if f.Max != nil {
		v := *f.Max
		out.Max = &v
	}
	if f.Precision != nil {
		v := *f.Precision
		out.Precision = &v
	}
	if f.ChecklistConfig != nil {
		cfg := f.ChecklistConfig.Clone()
		out.ChecklistConfig = &cfg
	}
	return out
}
