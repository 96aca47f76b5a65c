package export

import (
	"strconv"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadhunter/internal/model"
	"github.com/sells-group/leadhunter/internal/validate"
)

// DefaultSheetName is the worksheet holding the lead rows.
const DefaultSheetName = "Telecalling Leads"

// maxColWidth caps auto-sized columns.
const maxColWidth = 50

func headerStyle() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font.Bold = true
	s.Font.Size = 11
	s.Font.Color = "FFFFFFFF"
	s.Fill = *xlsx.NewFill("solid", "FF366092", "FF366092")
	s.Alignment.Horizontal = "center"
	s.Alignment.Vertical = "center"
	s.ApplyFont = true
	s.ApplyFill = true
	s.ApplyAlignment = true
	return s
}

// WriteXLSX writes rows to a single-sheet workbook at path.
func WriteXLSX(path, sheetName string, rows []Row) error {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	style := headerStyle()
	header := sheet.AddRow()
	for _, h := range Header {
		cell := header.AddCell()
		cell.SetString(h)
		cell.SetStyle(style)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Number)
		for _, v := range r.Cells()[1:] {
			row.AddCell().SetString(v)
		}
	}

	for i, w := range columnWidths(rows) {
		sheet.SetColWidth(i+1, i+1, w)
	}
	sheet.SheetViews = []xlsx.SheetView{{Pane: &xlsx.Pane{
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
		State:       "frozen",
	}}}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// columnWidths sizes each column to its longest cell plus padding, capped at
// maxColWidth.
func columnWidths(rows []Row) []float64 {
	widths := make([]float64, len(Header))
	fit := func(i int, v string) {
		w := float64(utf8.RuneCountInString(v) + 2)
		if w > maxColWidth {
			w = maxColWidth
		}
		if w > widths[i] {
			widths[i] = w
		}
	}
	for i, h := range Header {
		fit(i, h)
	}
	for _, r := range rows {
		for i, v := range r.Cells() {
			fit(i, v)
		}
	}
	return widths
}

// ReadXLSX loads a previously exported lead sheet back into records so it can
// be reconciled again. Only the projected columns survive the round trip.
func ReadXLSX(path, sheetName string) ([]model.BusinessRecord, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
	}

	var recs []model.BusinessRecord
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := rowToStrings(row)
		if len(cells) < len(Header) {
			cells = append(cells, make([]string, len(Header)-len(cells))...)
		}
		if allBlank(cells) {
			continue
		}

		rec := model.BusinessRecord{
			Name:      orSentinel(cells[1], model.UnknownName),
			Phone:     orSentinel(cells[2], model.NotFound),
			Address:   orSentinel(cells[3], model.NotFound),
			Website:   orSentinel(cells[4], model.NotFound),
			Hours:     model.NotFound,
			PlusCode:  model.NotFound,
			Latitude:  model.NotFound,
			Longitude: model.NotFound,
			PlaceID:   model.NotFound,
			Method:    model.MethodStructured,
		}
		if n, err := strconv.Atoi(cells[0]); err == nil {
			rec.Number = n
		}
		if v, ok := validate.Rating(cells[5]); ok {
			rec.Rating = model.Float(v)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func orSentinel(v, sentinel string) string {
	if v == "" {
		return sentinel
	}
	return v
}
