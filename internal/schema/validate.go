package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSchema  = errors.New("invalid form schema")
	ErrInvalidPayload = errors.New("invalid form payload")
)

// FieldError names one offending attribute by its JSON path.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError lists every problem found in a schema or payload.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Error
	}
	return e.Err.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the structural invariants of s: at least one section,
// unique ids, every field on an existing section, required attributes per
// kind and consistent checklist grids.
func Validate(s Schema) error {
	var errs []FieldError
	add := func(path, format string, args ...any) {
		errs = append(errs, FieldError{Field: path, Error: fmt.Sprintf(format, args...)})
	}

	if len(s.Sections) == 0 {
		add("sections", "at least one section is required")
	}
	sections := make(map[string]bool, len(s.Sections))
	for i, sec := range s.Sections {
		path := fmt.Sprintf("sections[%d]", i)
		if sec.ID == "" {
			add(path+".id", "is required")
			continue
		}
		if sections[sec.ID] {
			add(path+".id", "duplicate section id %q", sec.ID)
		}
		sections[sec.ID] = true
	}

	for _, sys := range []struct {
		name  string
		valid bool
	}{
		{"numberingSystem", s.Settings.NumberingSystem == "" || s.Settings.NumberingSystem.Valid()},
		{"gridSectionNumberingSystem", s.Settings.GridSectionNumberingSystem == "" || s.Settings.GridSectionNumberingSystem.Valid()},
		{"gridItemNumberingSystem", s.Settings.GridItemNumberingSystem == "" || s.Settings.GridItemNumberingSystem.Valid()},
	} {
		if !sys.valid {
			add("settings."+sys.name, "unknown numbering system")
		}
	}

	fields := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		if f.ID == "" {
			add(path+".id", "is required")
		} else if fields[f.ID] {
			add(path+".id", "duplicate field id %q", f.ID)
		}
		fields[f.ID] = true

		k, ok := KindOf(f.Type)
		if !ok {
			add(path+".type", "unknown field type %q", f.Type)
			continue
		}
		if !sections[f.Section] {
			add(path+".section", "unknown section %q", f.Section)
		}
		if k.Choice && len(f.Options) == 0 {
			add(path+".options", "%s fields need at least one option", f.Type)
		}
		if !k.Choice && len(f.Options) > 0 {
			add(path+".options", "not allowed for %s fields", f.Type)
		}
		if !k.Numeric && (f.Min != nil || f.Max != nil || f.Precision != nil) {
			add(path, "min, max and precision are only allowed on numeric fields")
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			add(path+".min", "must not exceed max")
		}
		if f.Precision != nil && *f.Precision < 0 {
			add(path+".precision", "must not be negative")
		}
		if k.Checklist {
			if f.ChecklistConfig == nil {
				add(path+".checklistConfig", "is required for checklist fields")
			} else {
				for _, fe := range validateChecklist(*f.ChecklistConfig) {
					add(path+".checklistConfig."+fe.Field, "%s", fe.Error)
				}
			}
		} else if f.ChecklistConfig != nil {
			add(path+".checklistConfig", "not allowed for %s fields", f.Type)
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Err: ErrInvalidSchema, Fields: errs}
	}
	return nil
}
