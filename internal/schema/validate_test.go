package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formstudio/internal/checklist"
)

func checklistSection(title string) checklist.Section {
	return checklist.Section{ID: "sec-" + title, Title: title}
}

func validSchema() Schema {
	f := NewField(TypeRadio, DefaultSectionID)
	f.Options = []string{"A", "B"}
	return Schema{
		Settings: DefaultSettings(),
		Sections: []Section{DefaultSection()},
		Fields:   []Field{NewField(TypeText, DefaultSectionID), f},
	}
}

func fieldPaths(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "want *ValidationError, got %v", err)
	out := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		out[i] = f.Field
	}
	return out
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, Validate(validSchema()))
}

func TestValidate_NoSections(t *testing.T) {
	s := validSchema()
	s.Sections = nil
	s.Fields = nil
	err := Validate(s)
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.Contains(t, fieldPaths(t, err), "sections")
}

func TestValidate_FieldProblems(t *testing.T) {
	s := validSchema()
	s.Fields[1].Options = nil
	s.Fields[0].Section = "page-9"
	dup := s.Fields[0]
	s.Fields = append(s.Fields, dup)

	paths := fieldPaths(t, Validate(s))
	assert.Contains(t, paths, "fields[0].section")
	assert.Contains(t, paths, "fields[1].options")
	assert.Contains(t, paths, "fields[2].id")
}

func TestValidate_ChecklistRowsNeedSection(t *testing.T) {
	s := validSchema()
	grid := NewField(TypeChecklist, DefaultSectionID)
	grid.ChecklistConfig.Rows = []checklist.Row{{ID: "row-1", SectionID: "sec-x", Text: "x"}}
	s.Fields = append(s.Fields, grid)

	assert.Contains(t, fieldPaths(t, Validate(s)), "fields[2].checklistConfig.rows[0].sectionId")
}

func TestValidate_Range(t *testing.T) {
	s := validSchema()
	n := NewField(TypeNumber, DefaultSectionID)
	lo, hi := 5.0, 1.0
	n.Min, n.Max = &lo, &hi
	s.Fields = append(s.Fields, n)
	assert.Contains(t, fieldPaths(t, Validate(s)), "fields[2].min")
}
