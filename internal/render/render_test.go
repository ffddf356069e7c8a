package render

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/numbering"
	"github.com/matthewbaird/formstudio/internal/schema"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestEveryKindHasATemplate(t *testing.T) {
	r := newRenderer(t)
	for _, ft := range schema.FieldTypes {
		name, ok := fieldTemplates[ft]
		if assert.True(t, ok, "no renderer for %s", ft) {
			assert.NotNil(t, r.tmpl.Lookup(name), "template %s missing", name)
		}
	}
	for _, it := range checklist.InputTypes {
		name, ok := inputTemplates[it]
		if assert.True(t, ok, "no control for %s", it) {
			assert.NotNil(t, r.tmpl.Lookup(name), "template %s missing", name)
		}
	}
}

// gridWithCheckbox builds one input column holding a checkbox and one row.
func gridWithCheckbox() (cfg checklist.Config, rowID, colID, inputID string) {
	b := checklist.NewBuilder(checklist.Config{})
	colID = b.AddColumn()
	sec := b.AddSection("Exterior")
	rowID = b.AddRow(sec, "Walls intact")
	cfg = b.Config()
	inputID = cfg.Columns[0].Inputs[0].ID
	return cfg, rowID, colID, inputID
}

func TestChecklist_ToggleCheckbox(t *testing.T) {
	r := newRenderer(t)
	cfg, rowID, colID, inputID := gridWithCheckbox()

	var before bytes.Buffer
	require.NoError(t, r.Checklist(&before, cfg, GridOptions{Prefix: "f"}))
	name := InputName("f", rowID, colID, inputID)
	assert.Contains(t, before.String(), `name="`+name+`"`)
	assert.NotContains(t, before.String(), "checked")

	// A browser submits the ticked box as "on".
	resp := ParseChecklistForm(cfg, "f", url.Values{name: {"on"}})
	assert.Equal(t, true, resp[rowID][colID].Values[inputID])

	capture := checklist.NewCapture(cfg, nil, checklist.NewMemoryBlobStore())
	on, err := capture.Toggle(rowID, colID, inputID)
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, true, capture.Responses()[rowID][colID].Values[inputID])

	var after bytes.Buffer
	require.NoError(t, r.Checklist(&after, cfg, GridOptions{Prefix: "f", Responses: capture.Responses()}))
	assert.Contains(t, after.String(), " checked")
}

func TestChecklist_InfoColumnIsStatic(t *testing.T) {
	r := newRenderer(t)
	b := checklist.NewBuilder(checklist.Config{})
	colID := b.AddColumn()
	info := checklist.ColumnInfo
	require.True(t, b.UpdateColumn(colID, checklist.ColumnPatch{Type: &info}))
	sec := b.AddSection("Exterior")
	rowID := b.AddRow(sec, "Walls")
	require.True(t, b.SetRowInfo(rowID, colID, "x"))
	cfg := b.Config()

	for _, readOnly := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, r.Checklist(&buf, cfg, GridOptions{Prefix: "f", ReadOnly: readOnly}))
		out := buf.String()
		assert.Contains(t, out, `<span class="info">x</span>`)
		assert.NotContains(t, out, "<input")
		assert.NotContains(t, out, "<textarea")
		assert.NotContains(t, out, "<select")
	}
}

func TestChecklist_EmptyColumnsPlaceholder(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	require.NoError(t, r.Checklist(&buf, checklist.Config{}, GridOptions{}))
	assert.Contains(t, buf.String(), "No columns configured yet.")
}

func TestChecklist_CommentOpensWhenPresent(t *testing.T) {
	r := newRenderer(t)
	cfg, rowID, colID, _ := gridWithCheckbox()

	var closed bytes.Buffer
	require.NoError(t, r.Checklist(&closed, cfg, GridOptions{Prefix: "f"}))
	assert.Contains(t, closed.String(), `<details class="comment">`)

	resp := checklist.Responses{rowID: {colID: {Comment: "cracked"}}}
	var open bytes.Buffer
	require.NoError(t, r.Checklist(&open, cfg, GridOptions{Prefix: "f", Responses: resp}))
	assert.Contains(t, open.String(), `<details class="comment" open>`)
	assert.Contains(t, open.String(), "cracked")
}

func TestChecklist_Attachments(t *testing.T) {
	r := newRenderer(t)
	cfg, rowID, colID, _ := gridWithCheckbox()
	resp := checklist.Responses{rowID: {colID: {Attachments: []checklist.Attachment{{Name: "wall.jpg", URL: "blob:1"}}}}}

	var buf bytes.Buffer
	require.NoError(t, r.Checklist(&buf, cfg, GridOptions{
		Prefix:    "f",
		Responses: resp,
		BlobHref:  func(u string) string { return "/v1/blobs/" + strings.TrimPrefix(u, "blob:") },
	}))
	assert.Contains(t, buf.String(), `<a href="/v1/blobs/1">wall.jpg</a>`)
}

func TestChecklist_Numbering(t *testing.T) {
	r := newRenderer(t)
	b := checklist.NewBuilder(checklist.Config{})
	b.AddColumn()
	b.AddSection("A")
	s2 := b.AddSection("B")
	b.AddRow(s2, "first")
	b.AddRow(s2, "second")

	s := schema.DefaultSettings()
	s.GridSectionNumberingEnabled = true
	s.GridSectionNumberingSystem = numbering.Roman
	s.GridItemNumberingEnabled = true
	s.GridItemNumberingSystem = numbering.Alpha

	var buf bytes.Buffer
	require.NoError(t, r.Checklist(&buf, b.Config(), GridOptions{Prefix: "f", Settings: s}))
	out := buf.String()
	assert.Contains(t, out, `<span class="number">II.</span> B`)
	assert.Contains(t, out, `<span class="number">II.B</span> second`)
}

func TestParseChecklistForm(t *testing.T) {
	b := checklist.NewBuilder(checklist.Config{})
	colID := b.AddColumn()
	numID := b.AddInput(colID, checklist.InputNumber)
	fileID := b.AddInput(colID, checklist.InputFile)
	sec := b.AddSection("S")
	rowID := b.AddRow(sec, "r")
	cfg := b.Config()
	boxID := cfg.Columns[0].Inputs[0].ID

	resp := ParseChecklistForm(cfg, "f", url.Values{
		InputName("f", rowID, colID, numID):  {"12.5"},
		InputName("f", rowID, colID, fileID): {"photo.png"},
		CommentName("f", rowID, colID):       {"ok"},
	})
	cell := resp[rowID][colID]
	assert.Equal(t, false, cell.Values[boxID])
	assert.Equal(t, 12.5, cell.Values[numID])
	assert.Equal(t, "photo.png", cell.Values[fileID])
	assert.Equal(t, "ok", cell.Comment)
}

func TestParseChecklistForm_EmptyControlsClear(t *testing.T) {
	b := checklist.NewBuilder(checklist.Config{})
	colID := b.AddColumn()
	textID := b.AddInput(colID, checklist.InputText)
	numID := b.AddInput(colID, checklist.InputNumber)
	dateID := b.AddInput(colID, checklist.InputDate)
	rowID := b.AddRow(b.AddSection("S"), "r")
	cfg := b.Config()

	resp := ParseChecklistForm(cfg, "f", url.Values{
		InputName("f", rowID, colID, textID): {""},
		InputName("f", rowID, colID, numID):  {""},
		CommentName("f", rowID, colID):       {""},
	})
	cell, ok := resp[rowID][colID]
	require.True(t, ok)
	assert.Equal(t, "", cell.Values[textID])
	v, present := cell.Values[numID]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.NotContains(t, cell.Values, dateID)
	assert.Empty(t, cell.Comment)
}

func TestForm_NumberedLabels(t *testing.T) {
	r := newRenderer(t)
	text := schema.NewField(schema.TypeText, schema.DefaultSectionID)
	text.Label = "Name"
	brk := schema.NewField(schema.TypeSection, schema.DefaultSectionID)
	brk.Label = "Details"
	num := schema.NewField(schema.TypeNumber, schema.DefaultSectionID)
	num.Label = "Age"
	grid := schema.NewField(schema.TypeChecklist, schema.DefaultSectionID)

	settings := schema.DefaultSettings()
	settings.NumberingEnabled = true
	settings.NumberingSystem = numbering.Alpha
	form := schema.Form{
		Title:  "Intake <b>",
		Status: schema.StatusDraft,
		Schema: schema.Schema{
			Settings: settings,
			Sections: []schema.Section{schema.DefaultSection()},
			Fields:   []schema.Field{text, brk, num, grid},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, r.Form(&buf, form, FormOptions{}))
	out := buf.String()
	assert.Contains(t, out, "Intake &lt;b&gt;")
	assert.Contains(t, out, `<span class="number">A.</span> Name`)
	assert.Contains(t, out, `<span class="number">B.</span> Age`)
	assert.Contains(t, out, "<h3>Details</h3>")
	assert.Contains(t, out, "No columns configured yet.")
	assert.Contains(t, out, `type="submit"`)
}
