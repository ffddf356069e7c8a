package schema

import (
	"github.com/imdario/mergo"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/numbering"
)

// Status is the publication state of a form.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

// DefaultSectionID and DefaultSectionTitle name the page every new form
// starts with.
const (
	DefaultSectionID    = "page-1"
	DefaultSectionTitle = "Page 1"
	DefaultSectionIcon  = "file-text"
)

// Section is one page of a form.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon"`
	Order int    `json:"order"`
}

// SectionPatch is a partial section update.
type SectionPatch struct {
	Title *string `json:"title,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

// DefaultSection returns the first page of a new form.
func DefaultSection() Section {
	return Section{ID: DefaultSectionID, Title: DefaultSectionTitle, Icon: DefaultSectionIcon}
}

// Settings controls numbering of fields and of checklist sections and rows.
type Settings struct {
	NumberingEnabled            bool             `json:"numberingEnabled"`
	NumberingSystem             numbering.System `json:"numberingSystem"`
	GridSectionNumberingEnabled bool             `json:"gridSectionNumberingEnabled"`
	GridSectionNumberingSystem  numbering.System `json:"gridSectionNumberingSystem"`
	GridItemNumberingEnabled    bool             `json:"gridItemNumberingEnabled"`
	GridItemNumberingSystem     numbering.System `json:"gridItemNumberingSystem"`
}

// SettingsPatch is a partial settings update.
type SettingsPatch struct {
	NumberingEnabled            *bool             `json:"numberingEnabled,omitempty"`
	NumberingSystem             *numbering.System `json:"numberingSystem,omitempty"`
	GridSectionNumberingEnabled *bool             `json:"gridSectionNumberingEnabled,omitempty"`
	GridSectionNumberingSystem  *numbering.System `json:"gridSectionNumberingSystem,omitempty"`
	GridItemNumberingEnabled    *bool             `json:"gridItemNumberingEnabled,omitempty"`
	GridItemNumberingSystem     *numbering.System `json:"gridItemNumberingSystem,omitempty"`
}

// DefaultSettings has numbering off and every system numeric.
func DefaultSettings() Settings {
	return Settings{
		NumberingSystem:            numbering.Numeric,
		GridSectionNumberingSystem: numbering.Numeric,
		GridItemNumberingSystem:    numbering.Numeric,
	}
}

// WithDefaults fills unset numbering systems from DefaultSettings.
func (s Settings) WithDefaults() Settings {
	if err := mergo.Merge(&s, DefaultSettings()); err != nil {
		log.WithError(err).Error("applying default settings")
	}
	return s
}

// Apply merges p into s. Unknown numbering systems are ignored.
func (s *Settings) Apply(p SettingsPatch) {
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setSystem := func(dst *numbering.System, v *numbering.System) {
		if v != nil && v.Valid() {
			*dst = *v
		}
	}
	setBool(&s.NumberingEnabled, p.NumberingEnabled)
	setSystem(&s.NumberingSystem, p.NumberingSystem)
	setBool(&s.GridSectionNumberingEnabled, p.GridSectionNumberingEnabled)
	setSystem(&s.GridSectionNumberingSystem, p.GridSectionNumberingSystem)
	setBool(&s.GridItemNumberingEnabled, p.GridItemNumberingEnabled)
	setSystem(&s.GridItemNumberingSystem, p.GridItemNumberingSystem)
}

// Schema is the serialisable body of a form.
type Schema struct {
	Settings Settings  `json:"settings"`
	Sections []Section `json:"sections"`
	Fields   []Field   `json:"fields"`
}

// Form is the aggregate persisted by the backend.
type Form struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Status      Status `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	Schema      Schema `json:"schema"`
}

// FieldsIn returns the fields of one section in display order.
func (s Schema) FieldsIn(sectionID string) []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Section == sectionID {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the field with the given id.
func (s Schema) Field(id string) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// Clone deep-copies s.
func (s Schema) Clone() Schema {
	out := Schema{
		Settings: s.Settings,
		Sections: append([]Section{}, s.Sections...),
		Fields:   make([]Field, len(s.Fields)),
	}
	for i, f := range s.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}
