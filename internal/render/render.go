// Package render draws forms and checklist grids as HTML. The same grid
// markup serves the builder preview, read-only review and live fill-in.
package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/numbering"
	"github.com/matthewbaird/formstudio/internal/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

// fieldTemplates maps every field kind to the template that draws it.
var fieldTemplates = map[schema.FieldType]string{
	schema.TypeText:      "field-text",
	schema.TypeTextarea:  "field-textarea",
	schema.TypeNumber:    "field-number",
	schema.TypeDecimal:   "field-number",
	schema.TypeDropdown:  "field-dropdown",
	schema.TypeRadio:     "field-radio",
	schema.TypeCheckbox:  "field-checkboxes",
	schema.TypeDate:      "field-date",
	schema.TypeTime:      "field-time",
	schema.TypeDateTime:  "field-datetime",
	schema.TypeFile:      "field-file",
	schema.TypeImage:     "field-image",
	schema.TypeSection:   "field-section",
	schema.TypeSignature: "field-signature",
	schema.TypeChecklist: "field-checklist",
}

// inputTemplates maps every checklist input kind to its control template.
var inputTemplates = map[checklist.InputType]string{
	checklist.InputCheckbox: "input-checkbox",
	checklist.InputText:     "input-text",
	checklist.InputDate:     "input-date",
	checklist.InputDateTime: "input-datetime",
	checklist.InputNumber:   "input-number",
	checklist.InputFile:     "input-file",
	checklist.InputSelect:   "input-select",
}

// Renderer holds the parsed template set. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("render").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}
	return &Renderer{tmpl: tmpl}, nil
}

// FormOptions controls form rendering.
type FormOptions struct {
	ReadOnly bool
	// Responses holds captured grid values keyed by checklist field id.
	Responses map[string]checklist.Responses
	// BlobHref turns an attachment URL into a link target.
	BlobHref func(url string) string
}

// GridOptions controls checklist rendering.
type GridOptions struct {
	// Prefix namespaces the control names; forms use the field id.
	Prefix    string
	ReadOnly  bool
	Responses checklist.Responses
	Settings  schema.Settings
	BlobHref  func(url string) string
}

type formView struct {
	Title       string
	Description string
	Status      schema.Status
	ReadOnly    bool
	Pages       []pageView
}

type pageView struct {
	ID     string
	Title  string
	Icon   string
	Fields []fieldView
}

type fieldView struct {
	ID          string
	Label       string
	Number      string
	Placeholder string
	Required    bool
	ReadOnly    bool
	Options     []string
	Min         string
	Max         string
	Step        string
	Grid        template.HTML
	HTML        template.HTML
}

// Form writes a full HTML document for f.
func (r *Renderer) Form(w io.Writer, f schema.Form, opts FormOptions) error {
	settings := f.Schema.Settings.WithDefaults()
	view := formView{
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		ReadOnly:    opts.ReadOnly,
	}
	n := 0
	for _, sec := range f.Schema.Sections {
		page := pageView{ID: sec.ID, Title: sec.Title, Icon: sec.Icon}
		for _, field := range f.Schema.FieldsIn(sec.ID) {
			k, _ := schema.KindOf(field.Type)
			fv := fieldView{
				ID:          field.ID,
				Label:       field.Label,
				Placeholder: field.Placeholder,
				Required:    field.Required,
				ReadOnly:    opts.ReadOnly,
				Options:     field.Options,
				Min:         formatFloatPtr(field.Min),
				Max:         formatFloatPtr(field.Max),
				Step:        step(field),
			}
			if !k.Display {
				n++
				if settings.NumberingEnabled {
					fv.Number = numbering.Format(settings.NumberingSystem, n)
				}
			}
			if field.Type == schema.TypeChecklist && field.ChecklistConfig != nil {
				grid, err := r.grid(*field.ChecklistConfig, GridOptions{
					Prefix:    field.ID,
					ReadOnly:  opts.ReadOnly,
					Responses: opts.Responses[field.ID],
					Settings:  settings,
					BlobHref:  opts.BlobHref,
				})
				if err != nil {
					return err
				}
				fv.Grid = grid
			}
			name, ok := fieldTemplates[field.Type]
			if !ok {
				continue
			}
			html, err := r.exec(name, fv)
			if err != nil {
				return err
			}
			fv.HTML = html
			page.Fields = append(page.Fields, fv)
		}
		view.Pages = append(view.Pages, page)
	}
	return errors.Wrap(r.tmpl.ExecuteTemplate(w, "form", view), "rendering form")
}

// Checklist writes the grid markup for cfg.
func (r *Renderer) Checklist(w io.Writer, cfg checklist.Config, opts GridOptions) error {
	html, err := r.grid(cfg, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, string(html))
	return err
}

func (r *Renderer) exec(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s", name)
	}
	return template.HTML(buf.String()), nil
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func step(f schema.Field) string {
	if f.Type != schema.TypeDecimal {
		return "1"
	}
	p := 2
	if f.Precision != nil {
		p = *f.Precision
	}
	if p <= 0 {
		return "1"
	}
	return "0." + strings.Repeat("0", p-1) + "1"
}
