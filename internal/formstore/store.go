// Package formstore is the in-memory state container for a form under
// construction. All edits go through named operations; every committed
// operation is persisted through a Persister so an in-progress form survives
// restarts, and announced to an optional change callback.
//
// Operations never fail. Unknown ids, unknown field types and removing the
// last page are silent no-ops (logged at debug level); the boolean results
// only tell callers whether anything changed.
package formstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/ordering"
	"github.com/matthewbaird/formstudio/internal/schema"
)

// DraftKey is the storage key of the in-progress form.
const DraftKey = "form-builder-storage"

// DefaultTitle is the title of a fresh form.
const DefaultTitle = "Untitled form"

// State is everything the editor knows about the form being built.
type State struct {
	FormID          string           `json:"formId,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Status          schema.Status    `json:"status"`
	Fields          []schema.Field   `json:"fields"`
	Sections        []schema.Section `json:"sections"`
	ActiveSectionID string           `json:"activeSectionId"`
	Settings        schema.Settings  `json:"settings"`
}

func initialState() State {
	return State{
		Title:           DefaultTitle,
		Status:          schema.StatusDraft,
		Fields:          []schema.Field{},
		Sections:        []schema.Section{schema.DefaultSection()},
		ActiveSectionID: schema.DefaultSectionID,
		Settings:        schema.DefaultSettings(),
	}
}

func (st State) clone() State {
	out := st
	out.Sections = append([]schema.Section{}, st.Sections...)
	out.Fields = make([]schema.Field, len(st.Fields))
	for i, f := range st.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}

// Persister stores serialised state under a key.
type Persister interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
}

// Option configures a Store.
type Option func(*Store)

// WithPersister enables load-on-init and save-on-every-mutation under key.
func WithPersister(p Persister, key string) Option {
	return func(s *Store) {
		s.persister = p
		s.key = key
	}
}

// WithLogger sets the logger used for persistence failures and no-ops.
func WithLogger(l *log.Entry) Option {
	return func(s *Store) { s.log = l }
}

// WithOnChange registers a callback invoked with the operation name after
// each committed mutation. It runs outside the store lock.
func WithOnChange(fn func(op string)) Option {
	return func(s *Store) { s.onChange = fn }
}

// Store holds one form under construction. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	state     State
	persister Persister
	key       string
	log       *log.Entry
	onChange  func(op string)
}

const persistTimeout = 5 * time.Second

// New creates a store, restoring the persisted draft when one exists.
func New(ctx context.Context, opts ...Option) *Store {
	s := &Store{state: initialState(), key: DraftKey}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = log.WithField("component", "formstore")
	}
	if s.persister == nil {
		return s
	}
	data, ok, err := s.persister.Load(ctx, s.key)
	if err != nil {
		s.log.WithFields(log.Fields{"key": s.key, "error": err}).Warn("loading draft failed")
		return s
	}
	if !ok {
		return s
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.WithFields(log.Fields{"key": s.key, "error": err}).Warn("discarding unreadable draft")
		return s
	}
	s.state = restore(st)
	return s
}

// restore repairs a decoded state so the store invariants hold.
func restore(st State) State {
	if len(st.Sections) == 0 {
		st.Sections = []schema.Section{schema.DefaultSection()}
	}
	if st.Fields == nil {
		st.Fields = []schema.Field{}
	}
	if st.Status == "" {
		st.Status = schema.StatusDraft
	}
	st.Settings = st.Settings.WithDefaults()
	if ordering.IndexOf(st.Sections, sectionID, st.ActiveSectionID) < 0 {
		st.ActiveSectionID = st.Sections[0].ID
	}
	for i := range st.Fields {
		schema.Normalize(&st.Fields[i])
	}
	reweigh(&st)
	return st
}

func fieldID(f schema.Field) string     { return f.ID }
func sectionID(s schema.Section) string { return s.ID }

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Form serialises the state into the backend payload shape.
func (s *Store) Form() schema.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state.clone()
	return schema.Form{
		ID:          st.FormID,
		Title:       st.Title,
		Description: st.Description,
		Status:      st.Status,
		Schema: schema.Schema{
			Settings: st.Settings,
			Sections: st.Sections,
			Fields:   st.Fields,
		},
	}
}

// mutate runs fn under the lock. When fn reports a change the order weights
// are recomputed, the state is persisted and onChange fires.
func (s *Store) mutate(op string, fn func(st *State) bool) bool {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		s.log.WithField("op", op).Debug("no-op")
		return false
	}
	reweigh(&s.state)
	s.persistLocked()
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(op)
	}
	return true
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		s.log.WithField("error", err).Error("encoding draft failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, s.key, data); err != nil {
		s.log.WithFields(log.Fields{"key": s.key, "error": err}).Error("saving draft failed")
	}
}

func reweigh(st *State) {
	ordering.Reweigh(st.Sections, func(sec *schema.Section, i int) { sec.Order = i })
	ordering.Reweigh(st.Fields, func(f *schema.Field, i int) { f.Order = i })
}

// ── Form metadata ───────────────────────────────────────────────────────────

func (s *Store) SetTitle(title string) bool {
	return s.mutate("set_title", func(st *State) bool {
		st.Title = title
		return true
	})
}

func (s *Store) SetDescription(desc string) bool {
	return s.mutate("set_description", func(st *State) bool {
		st.Description = desc
		return true
	})
}

// SetStatus ignores statuses other than DRAFT and PUBLISHED.
func (s *Store) SetStatus(status schema.Status) bool {
	return s.mutate("set_status", func(st *State) bool {
		if status != schema.StatusDraft && status != schema.StatusPublished {
			return false
		}
		st.Status = status
		return true
	})
}

// SetFormID records the backend id after the first successful save.
func (s *Store) SetFormID(id string) bool {
	return s.mutate("set_form_id", func(st *State) bool {
		st.FormID = id
		return true
	})
}

func (s *Store) UpdateSettings(p schema.SettingsPatch) bool {
	return s.mutate("update_settings", func(st *State) bool {
		st.Settings.Apply(p)
		return true
	})
}

// ── Sections ────────────────────────────────────────────────────────────────

// AddSection appends a page titled "Page N", makes it active and returns its id.
func (s *Store) AddSection() string {
	var id string
	s.mutate("add_section", func(st *State) bool {
		sec := schema.Section{
			ID:    "page-" + uuid.Must(uuid.NewV7()).String(),
			Title: fmt.Sprintf("Page %d", len(st.Sections)+1),
			Icon:  schema.DefaultSectionIcon,
		}
		st.Sections = ordering.Insert(st.Sections, len(st.Sections), sec)
		st.ActiveSectionID = sec.ID
		id = sec.ID
		return true
	})
	return id
}

func (s *Store) UpdateSection(id string, p schema.SectionPatch) bool {
	return s.mutate("update_section", func(st *State) bool {
		i := ordering.IndexOf(st.Sections, sectionID, id)
		if i < 0 {
			return false
		}
		sections := append([]schema.Section(nil), st.Sections...)
		if p.Title != nil {
			sections[i].Title = *p.Title
		}
		if p.Icon != nil {
			sections[i].Icon = *p.Icon
		}
		st.Sections = sections
		return true
	})
}

// RemoveSection deletes a page and its fields. The last remaining page is
// never removed. When the active page goes, the first remaining page becomes
// active.
func (s *Store) RemoveSection(id string) bool {
	return s.mutate("remove_section", func(st *State) bool {
		if len(st.Sections) <= 1 || ordering.IndexOf(st.Sections, sectionID, id) < 0 {
			return false
		}
		st.Sections = ordering.Filter(st.Sections, func(sec schema.Section) bool { return sec.ID != id })
		st.Fields = ordering.Filter(st.Fields, func(f schema.Field) bool { return f.Section != id })
		if st.ActiveSectionID == id {
			st.ActiveSectionID = st.Sections[0].ID
		}
		return true
	})
}

func (s *Store) SetActiveSection(id string) bool {
	return s.mutate("set_active_section", func(st *State) bool {
		if ordering.IndexOf(st.Sections, sectionID, id) < 0 || st.ActiveSectionID == id {
			return false
		}
		st.ActiveSectionID = id
		return true
	})
}

func (s *Store) ReorderSections(activeID, overID string) bool {
	return s.mutate("reorder_sections", func(st *State) bool {
		out, ok := ordering.Move(st.Sections, sectionID, activeID, overID)
		if ok {
			st.Sections = out
		}
		return ok
	})
}

// ── Fields ──────────────────────────────────────────────────────────────────

// AddField inserts a field of type t into section and returns its id. With
// a nil index the field goes to the end of the form; otherwise it is placed
// before the index-th field of that section, or at the end when the section
// has no such field. Unknown types or sections return "".
func (s *Store) AddField(t schema.FieldType, section string, index *int) string {
	var id string
	s.mutate("add_field", func(st *State) bool {
		if !t.Valid() || ordering.IndexOf(st.Sections, sectionID, section) < 0 {
			return false
		}
		f := schema.NewField(t, section)
		at := len(st.Fields)
		if index != nil {
			if pos := globalIndex(st.Fields, section, *index); pos >= 0 {
				at = pos
			}
		}
		st.Fields = ordering.Insert(st.Fields, at, f)
		id = f.ID
		return true
	})
	return id
}

// globalIndex translates the n-th field of a section into its position in
// the flat field list, or -1.
func globalIndex(fields []schema.Field, section string, n int) int {
	if n < 0 {
		return -1
	}
	seen := 0
	for i, f := range fields {
		if f.Section != section {
			continue
		}
		if seen == n {
			return i
		}
		seen++
	}
	return -1
}

func (s *Store) UpdateField(id string, p schema.FieldPatch) bool {
	return s.mutate("update_field", func(st *State) bool {
		i := ordering.IndexOf(st.Fields, fieldID, id)
		if i < 0 {
			return false
		}
		fields := append([]schema.Field(nil), st.Fields...)
		f := fields[i].Clone()
		f.Apply(p)
		fields[i] = f
		st.Fields = fields
		return true
	})
}

func (s *Store) RemoveField(id string) bool {
	return s.mutate("remove_field", func(st *State) bool {
		if ordering.IndexOf(st.Fields, fieldID, id) < 0 {
			return false
		}
		st.Fields = ordering.Filter(st.Fields, func(f schema.Field) bool { return f.ID != id })
		return true
	})
}

// DuplicateField clones a field right after the original and returns the
// copy's id. The copy's label gets a trailing space as a copy marker.
func (s *Store) DuplicateField(id string) string {
	var copyID string
	s.mutate("duplicate_field", func(st *State) bool {
		i := ordering.IndexOf(st.Fields, fieldID, id)
		if i < 0 {
			return false
		}
		dup := st.Fields[i].Clone()
		dup.ID = schema.NewFieldID()
		dup.Label += " "
		st.Fields = ordering.Insert(st.Fields, i+1, dup)
		copyID = dup.ID
		return true
	})
	return copyID
}

// MoveField drops field activeID onto the position of overID. Dropping onto
// a field of another page moves the field to that page.
func (s *Store) MoveField(activeID, overID string) bool {
	return s.mutate("move_field", func(st *State) bool {
		over := ordering.IndexOf(st.Fields, fieldID, overID)
		if over < 0 {
			return false
		}
		target := st.Fields[over].Section
		out, ok := ordering.Move(st.Fields, fieldID, activeID, overID)
		if !ok {
			return false
		}
		out[ordering.IndexOf(out, fieldID, activeID)].Section = target
		st.Fields = out
		return true
	})
}

// SetChecklistConfig replaces the grid of a checklist field.
func (s *Store) SetChecklistConfig(id string, cfg checklist.Config) bool {
	return s.mutate("set_checklist_config", func(st *State) bool {
		i := ordering.IndexOf(st.Fields, fieldID, id)
		if i < 0 || st.Fields[i].Type != schema.TypeChecklist {
			return false
		}
		fields := append([]schema.Field(nil), st.Fields...)
		c := cfg.Clone()
		fields[i].ChecklistConfig = &c
		st.Fields = fields
		return true
	})
}

// UpdateChecklistConfig runs fn on a Builder over the current grid of a
// checklist field and stores the result when fn reports a change. fn runs
// under the store lock, so edits on the same field never interleave. The
// first result is false when the field is not a checklist field.
func (s *Store) UpdateChecklistConfig(id string, fn func(b *checklist.Builder) bool) (found, changed bool) {
	changed = s.mutate("set_checklist_config", func(st *State) bool {
		i := ordering.IndexOf(st.Fields, fieldID, id)
		if i < 0 || st.Fields[i].Type != schema.TypeChecklist {
			return false
		}
		found = true
		var cur checklist.Config
		if st.Fields[i].ChecklistConfig != nil {
			cur = *st.Fields[i].ChecklistConfig
		}
		b := checklist.NewBuilder(cur)
		if !fn(b) {
			return false
		}
		fields := append([]schema.Field(nil), st.Fields...)
		c := b.Config()
		fields[i].ChecklistConfig = &c
		st.Fields = fields
		return true
	})
	return found, changed
}

// ── Whole-state replacement ─────────────────────────────────────────────────

// ResetForm discards everything and starts a fresh form.
func (s *Store) ResetForm() {
	s.mutate("reset_form", func(st *State) bool {
		*st = initialState()
		return true
	})
}

// LoadForm replaces the state with a backend form. A form without pages
// gets the default "Page 1"; the first page becomes active.
func (s *Store) LoadForm(f schema.Form) {
	s.mutate("load_form", func(st *State) bool {
		sc := f.Schema.Clone()
		next := restore(State{
			FormID:      f.ID,
			Title:       f.Title,
			Description: f.Description,
			Status:      f.Status,
			Fields:      sc.Fields,
			Sections:    sc.Sections,
			Settings:    sc.Settings,
		})
		next.ActiveSectionID = next.Sections[0].ID
		*st = next
		return true
	})
}
