package schema

import (
	"fmt"

	"github.com/matthewbaird/formstudio/internal/checklist"
)

func validateChecklist(cfg checklist.Config) []FieldError {
	var errs []FieldError
	add := func(path, format string, args ...any) {
		errs = append(errs, FieldError{Field: path, Error: fmt.Sprintf(format, args...)})
	}

	columns := map[string]bool{}
	for i, col := range cfg.Columns {
		path := fmt.Sprintf("columns[%d]", i)
		if col.ID == "" || columns[col.ID] {
			add(path+".id", "missing or duplicate column id")
		}
		columns[col.ID] = true
		if col.Type != checklist.ColumnInput && col.Type != checklist.ColumnInfo {
			add(path+".type", "unknown column type %q", col.Type)
		}
		for j, in := range col.Inputs {
			if !in.Type.Valid() {
				add(fmt.Sprintf("%s.inputs[%d].type", path, j), "unknown input type %q", in.Type)
			}
		}
	}

	sections := map[string]bool{}
	for i, s := range cfg.Sections {
		if s.ID == "" || sections[s.ID] {
			add(fmt.Sprintf("sections[%d].id", i), "missing or duplicate section id")
		}
		sections[s.ID] = true
	}
	rows := map[string]bool{}
	for i, r := range cfg.Rows {
		path := fmt.Sprintf("rows[%d]", i)
		if r.ID == "" || rows[r.ID] {
			add(path+".id", "missing or duplicate row id")
		}
		rows[r.ID] = true
		if !sections[r.SectionID] {
			add(path+".sectionId", "unknown section %q", r.SectionID)
		}
	}
	return errs
}
