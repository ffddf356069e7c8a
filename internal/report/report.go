// Package report exports captured checklist responses as spreadsheets.
package report

import (
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/pkg/errors"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/numbering"
	"github.com/matthewbaird/formstudio/internal/schema"
)

// ErrNotChecklist is returned for fields that carry no grid.
var ErrNotChecklist = errors.New("field is not an inspection checklist")

const defaultSheet = "Sheet1"

// ContentType is the media type of a workbook written by ChecklistWorkbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// column is one spreadsheet column derived from the grid definition.
type column struct {
	colID  string
	header string
	value  func(row checklist.Row, cell checklist.CellData) any
}

// ChecklistWorkbook builds a workbook with one row per checklist item. Input
// columns expand to one spreadsheet column per input plus comment and
// attachment columns when the grid column allows them.
func ChecklistWorkbook(field schema.Field, responses checklist.Responses, settings schema.Settings) (*excelize.File, error) {
	if field.Type != schema.TypeChecklist || field.ChecklistConfig == nil {
		return nil, ErrNotChecklist
	}
	cfg := *field.ChecklistConfig
	settings = settings.WithDefaults()

	f := excelize.NewFile()
	sheet := SheetName(field.Label)
	f.SetSheetName(defaultSheet, sheet)

	cols := gridColumns(cfg)
	headers := append([]string{"#", "Section", "Item"}, headerNames(cols)...)
	for i, h := range headers {
		if err := setCell(f, sheet, i+1, 1, h); err != nil {
			return nil, err
		}
	}
	if style, err := f.NewStyle(`{"font":{"bold":true}}`); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	line := 2
	for si, sec := range cfg.Sections {
		secNum := numbering.Format(settings.GridSectionNumberingSystem, si+1)
		for ri, row := range cfg.RowsIn(sec.ID) {
			num := numbering.Label(secNum, numbering.Format(settings.GridItemNumberingSystem, ri+1))
			values := []any{num, sec.Title, row.Text}
			for _, c := range cols {
				values = append(values, c.value(row, responses.Cell(row.ID, c.colID)))
			}
			for i, v := range values {
				if err := setCell(f, sheet, i+1, line, v); err != nil {
					return nil, err
				}
			}
			line++
		}
	}
	if err := f.SetColWidth(sheet, "C", "C", 40); err != nil {
		return nil, errors.Wrap(err, "sizing item column")
	}
	return f, nil
}

// gridColumns expands grid columns into spreadsheet columns.
func gridColumns(cfg checklist.Config) []column {
	var out []column
	for _, col := range cfg.Columns {
		if col.Type == checklist.ColumnInfo {
			out = append(out, column{
				colID:  col.ID,
				header: col.Name,
				value:  func(row checklist.Row, _ checklist.CellData) any { return row.Info[col.ID] },
			})
			continue
		}
		for _, in := range col.Inputs {
			name := col.Name
			if in.Label != "" {
				name += " / " + in.Label
			}
			out = append(out, column{
				colID:  col.ID,
				header: name,
				value:  func(_ checklist.Row, cell checklist.CellData) any { return cellValue(cell.Values[in.ID]) },
			})
		}
		if col.Capabilities.AllowComments {
			out = append(out, column{
				colID:  col.ID,
				header: col.Name + " comment",
				value:  func(_ checklist.Row, cell checklist.CellData) any { return cell.Comment },
			})
		}
		if col.Capabilities.AllowAttachments {
			out = append(out, column{
				colID:  col.ID,
				header: col.Name + " attachments",
				value: func(_ checklist.Row, cell checklist.CellData) any {
					names := make([]string, len(cell.Attachments))
					for i, a := range cell.Attachments {
						names[i] = a.Name
					}
					return strings.Join(names, ", ")
				},
			})
		}
	}
	return out
}

func headerNames(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.header
	}
	return out
}

func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	default:
		return val
	}
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return errors.Wrap(err, "addressing cell")
	}
	return errors.Wrapf(f.SetCellValue(sheet, axis, v), "writing %s", axis)
}

// SheetName turns a field label into a valid worksheet name.
func SheetName(label string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return ' '
		}
		return r
	}, strings.TrimSpace(label))
	name = strings.TrimSpace(name)
	if name == "" {
		return "Checklist"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
