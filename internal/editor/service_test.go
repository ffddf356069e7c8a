package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formstudio/internal/activity"
	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/draft"
	"github.com/matthewbaird/formstudio/internal/event"
	"github.com/matthewbaird/formstudio/internal/render"
	"github.com/matthewbaird/formstudio/internal/schema"
	"github.com/matthewbaird/formstudio/internal/session"
)

type fakeForms struct {
	forms   map[string]schema.Form
	fail    error
	creates int
	updates int
}

func (f *fakeForms) GetForm(_ context.Context, id string) (schema.Form, error) {
	form, ok := f.forms[id]
	if !ok {
		return schema.Form{}, errors.New("not found")
	}
	return form, nil
}

func (f *fakeForms) CreateForm(_ context.Context, form schema.Form) (schema.Form, error) {
	if f.fail != nil {
		return schema.Form{}, f.fail
	}
	f.creates++
	form.ID = "form-new"
	f.forms[form.ID] = form
	return form, nil
}

func (f *fakeForms) UpdateForm(_ context.Context, id string, form schema.Form) (schema.Form, error) {
	if f.fail != nil {
		return schema.Form{}, f.fail
	}
	f.updates++
	f.forms[id] = form
	return form, nil
}

type fixture struct {
	svc      *Service
	forms    *fakeForms
	drafts   *draft.MemoryStore
	history  *activity.MemoryStore
	blobs    *checklist.MemoryBlobStore
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r, err := render.New()
	require.NoError(t, err)
	v, err := schema.NewPayloadValidator()
	require.NoError(t, err)

	fx := &fixture{
		forms:    &fakeForms{forms: map[string]schema.Form{}},
		drafts:   draft.NewMemoryStore(),
		history:  activity.NewMemoryStore(),
		blobs:    checklist.NewMemoryBlobStore(),
		sessions: session.NewManager(time.Hour, time.Hour, nil),
	}
	fx.svc = New(Deps{
		Sessions:  fx.sessions,
		Drafts:    fx.drafts,
		Forms:     fx.forms,
		Templates: checklist.NewMemoryTemplateStore(),
		Blobs:     fx.blobs,
		Recorder:  event.NewActivityRecorder(fx.history),
		Validator: v,
		Renderer:  r,
	})
	return fx
}

func (fx *fixture) open(t *testing.T) string {
	t.Helper()
	sess, err := fx.svc.Open(context.Background(), OpenOptions{})
	require.NoError(t, err)
	return sess.ID
}

func (fx *fixture) apply(t *testing.T, sid string, op Op) Result {
	t.Helper()
	res, _, err := fx.svc.Apply(sid, op)
	require.NoError(t, err)
	return res
}

func TestApply_AddFieldAndSection(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)

	res := fx.apply(t, sid, Op{Op: "add_field", Type: schema.TypeText, Section: "page-1"})
	assert.True(t, res.Changed)
	assert.NotEmpty(t, res.ID)

	page := fx.apply(t, sid, Op{Op: "add_section"})
	// Without a section the field goes to the active page.
	fx.apply(t, sid, Op{Op: "add_field", Type: schema.TypeDate})

	st, err := fx.svc.State(sid)
	require.NoError(t, err)
	require.Len(t, st.Fields, 2)
	assert.Equal(t, page.ID, st.ActiveSectionID)
	assert.Equal(t, page.ID, st.Fields[1].Section)
}

func TestApply_UnknownOp(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)
	_, _, err := fx.svc.Apply(sid, Op{Op: "explode"})
	assert.ErrorIs(t, err, ErrUnknownOp)

	_, _, err = fx.svc.Apply("nope", Op{Op: "add_section"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestApply_UnknownIDIsNoop(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)
	res := fx.apply(t, sid, Op{Op: "remove_field", ID: "missing"})
	assert.False(t, res.Changed)
	res = fx.apply(t, sid, Op{Op: "remove_section", ID: "page-1"})
	assert.False(t, res.Changed)
}

func TestEveryOpIsDispatchable(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)
	for _, name := range OpNames() {
		_, _, err := fx.svc.Apply(sid, Op{Op: name, Value: "DRAFT"})
		assert.NoError(t, err, name)
	}
}

func TestOpen_ResumesDraft(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)
	fx.apply(t, sid, Op{Op: "set_title", Value: "Resumed"})
	require.NoError(t, fx.svc.Close(context.Background(), sid, false))

	sess, err := fx.svc.Open(context.Background(), OpenOptions{Resume: sid})
	require.NoError(t, err)
	assert.Equal(t, sid, sess.ID)
	assert.Equal(t, "Resumed", sess.Store().State().Title)

	require.NoError(t, fx.svc.Close(context.Background(), sid, true))
	_, ok, err := fx.drafts.Load(context.Background(), DraftKey(sid))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_LoadsBackendForm(t *testing.T) {
	fx := newFixture(t)
	fx.forms.forms["f1"] = schema.Form{
		ID:     "f1",
		Title:  "Backend",
		Status: schema.StatusPublished,
		Schema: schema.Schema{Sections: []schema.Section{{ID: "s1", Title: "Intro"}, {ID: "s2", Title: "More"}}},
	}
	sess, err := fx.svc.Open(context.Background(), OpenOptions{FormID: "f1"})
	require.NoError(t, err)
	st := sess.Store().State()
	assert.Equal(t, "f1", st.FormID)
	assert.Equal(t, "s1", st.ActiveSectionID)
	assert.Len(t, st.Sections, 2)
}

func TestSave_CreatesThenUpdates(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)
	fx.apply(t, sid, Op{Op: "set_title", Value: "Audit"})

	saved, err := fx.svc.Save(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, "form-new", saved.ID)
	assert.Equal(t, 1, fx.forms.creates)

	_, err = fx.svc.Save(context.Background(), sid)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.forms.updates)

	entries, _, _, err := fx.history.QueryByEntity(context.Background(), "form", "form-new", activity.QueryOptions{Categories: []string{"lifecycle"}})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSave_FailureKeepsState(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)
	fx.apply(t, sid, Op{Op: "add_field", Type: schema.TypeText, Section: "page-1"})
	before, _ := fx.svc.State(sid)

	fx.forms.fail = errors.New("backend down")
	_, err := fx.svc.Save(context.Background(), sid)
	require.Error(t, err)

	after, _ := fx.svc.State(sid)
	assert.Equal(t, before, after)
}

func TestImport(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)

	form := schema.Form{
		Title:  "Imported",
		Status: schema.StatusDraft,
		Schema: schema.Schema{
			Settings: schema.DefaultSettings(),
			Sections: []schema.Section{schema.DefaultSection()},
			Fields:   []schema.Field{schema.NewField(schema.TypeRadio, schema.DefaultSectionID)},
		},
	}
	raw, err := json.Marshal(form)
	require.NoError(t, err)
	require.NoError(t, fx.svc.Import(sid, raw))
	st, _ := fx.svc.State(sid)
	assert.Equal(t, "Imported", st.Title)
	assert.Len(t, st.Fields, 1)

	err = fx.svc.Import(sid, []byte(`{"title":"x","schema":{"fields":[{"id":"a","type":"hologram","section":"page-1"}]}}`))
	var verr *schema.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func checklistSession(t *testing.T, fx *fixture) (sid, fieldID string) {
	t.Helper()
	sid = fx.open(t)
	res := fx.apply(t, sid, Op{Op: "add_field", Type: schema.TypeChecklist, Section: "page-1"})
	return sid, res.ID
}

func TestApplyChecklist_BuildGridAndFill(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	sid, fid := checklistSession(t, fx)

	col, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_column"})
	require.NoError(t, err)
	sec, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_section", Text: "Exterior"})
	require.NoError(t, err)
	row, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_row", SectionID: sec.ID, Text: "Walls"})
	require.NoError(t, err)
	require.Len(t, row.Config.Rows, 1)

	st, _ := fx.svc.State(sid)
	require.NotNil(t, st.Fields[0].ChecklistConfig)
	assert.Len(t, st.Fields[0].ChecklistConfig.Columns, 1)

	inputID := row.Config.Columns[0].Inputs[0].ID
	resp, err := fx.svc.ApplyCell(ctx, sid, fid, CellOp{Op: "toggle", RowID: row.ID, ColumnID: col.ID, InputID: inputID})
	require.NoError(t, err)
	assert.Equal(t, true, resp[row.ID][col.ID].Values[inputID])

	resp, err = fx.svc.SubmitResponses(ctx, sid, fid, url.Values{
		render.CommentName(fid, row.ID, col.ID): {"chipped paint"},
	})
	require.NoError(t, err)
	assert.Equal(t, false, resp[row.ID][col.ID].Values[inputID])
	assert.Equal(t, "chipped paint", resp[row.ID][col.ID].Comment)

	wb, err := fx.svc.Workbook(sid, fid)
	require.NoError(t, err)
	assert.NotNil(t, wb)

	var buf bytes.Buffer
	require.NoError(t, fx.svc.Preview(&buf, sid, true))
	assert.Contains(t, buf.String(), "chipped paint")
}

func TestSubmitResponses_ClearsOnResubmit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	sid, fid := checklistSession(t, fx)

	col, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_column"})
	require.NoError(t, err)
	text, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_input", ColumnID: col.ID, InputType: checklist.InputText})
	require.NoError(t, err)
	sec, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_section", Text: "Exterior"})
	require.NoError(t, err)
	row, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_row", SectionID: sec.ID, Text: "Walls"})
	require.NoError(t, err)

	textName := render.InputName(fid, row.ID, col.ID, text.ID)
	commentName := render.CommentName(fid, row.ID, col.ID)
	resp, err := fx.svc.SubmitResponses(ctx, sid, fid, url.Values{textName: {"old"}, commentName: {"old comment"}})
	require.NoError(t, err)
	assert.Equal(t, "old", resp[row.ID][col.ID].Values[text.ID])

	resp, err = fx.svc.SubmitResponses(ctx, sid, fid, url.Values{textName: {""}, commentName: {""}})
	require.NoError(t, err)
	assert.Equal(t, "", resp[row.ID][col.ID].Values[text.ID])
	assert.Empty(t, resp[row.ID][col.ID].Comment)
}

func TestApplyChecklist_Templates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	sid, fid := checklistSession(t, fx)

	_, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "save_template", Name: "Roles"})
	assert.ErrorIs(t, err, checklist.ErrNoColumns)

	fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_column"})
	saved, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "save_template", Name: "Roles"})
	require.NoError(t, err)
	require.NotNil(t, saved.Template)

	fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_column"})
	loaded, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "load_template", TemplateID: saved.Template.ID})
	require.NoError(t, err)
	assert.Equal(t, saved.Template.Columns, loaded.Config.Columns)
}

func TestApplyChecklist_Errors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	sid, fid := checklistSession(t, fx)
	text := fx.apply(t, sid, Op{Op: "add_field", Type: schema.TypeText, Section: "page-1"})

	_, err := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "paint"})
	assert.ErrorIs(t, err, ErrUnknownOp)
	_, err = fx.svc.ApplyChecklist(ctx, sid, text.ID, ChecklistOp{Op: "add_column"})
	assert.ErrorIs(t, err, ErrNotChecklist)
	_, err = fx.svc.ApplyChecklist(ctx, sid, "missing", ChecklistOp{Op: "add_column"})
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestRemovingChecklistFieldReleasesBlobs(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	sid, fid := checklistSession(t, fx)
	col, _ := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_column"})
	sec, _ := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_section"})
	row, _ := fx.svc.ApplyChecklist(ctx, sid, fid, ChecklistOp{Op: "add_row", SectionID: sec.ID})

	_, err := fx.svc.AddAttachment(ctx, sid, fid, row.ID, col.ID, "a.png", "image/png", []byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.blobs.Len())

	fx.apply(t, sid, Op{Op: "remove_field", ID: fid})
	assert.Zero(t, fx.blobs.Len())
}

func TestChangesAreRecorded(t *testing.T) {
	fx := newFixture(t)
	sid := fx.open(t)
	fx.apply(t, sid, Op{Op: "add_section"})
	fx.apply(t, sid, Op{Op: "set_title", Value: "T"})

	entries, _, total, err := fx.history.QueryByEntity(context.Background(), "session", sid, activity.QueryOptions{Categories: []string{"form"}})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	ops := []string{entries[0].Op, entries[1].Op}
	assert.ElementsMatch(t, []string{"add_section", "set_title"}, ops)
}
