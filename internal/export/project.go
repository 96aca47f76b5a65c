// Package export projects reconciled records into the telecalling lead sheet
// and writes runs out as XLSX, CSV, JSON, YAML and GeoJSON files.
package export

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/leadhunter/internal/model"
)

// Row is the telecalling view of one record. Absent values are empty.
type Row struct {
	Number   int    `json:"s_no" csv:"S.No." yaml:"s_no"`
	Name     string `json:"business_name" csv:"Business Name" yaml:"business_name"`
	Phone    string `json:"contact_number" csv:"Contact Number" yaml:"contact_number"`
	Location string `json:"location" csv:"Location" yaml:"location"`
	Website  string `json:"website" csv:"Website" yaml:"website"`
	Rating   string `json:"rating" csv:"Rating" yaml:"rating"`
}

// Header is the column order of the lead sheet.
var Header = []string{"S.No.", "Business Name", "Contact Number", "Location", "Website", "Rating"}

// Project maps a record to its telecalling row.
func Project(rec model.BusinessRecord) Row {
	rating := ""
	if rec.Rating != nil {
		rating = rec.RatingText()
	}
	name := rec.Name
	if name == "" {
		name = model.UnknownName
	}
	return Row{
		Number:   rec.Number,
		Name:     name,
		Phone:    model.Present(rec.Phone),
		Location: model.Present(rec.Address),
		Website:  model.Present(rec.Website),
		Rating:   rating,
	}
}

// ProjectAll maps records to rows, preserving order.
func ProjectAll(recs []model.BusinessRecord) []Row {
	rows := make([]Row, len(recs))
	for i, r := range recs {
		rows[i] = Project(r)
	}
	return rows
}

// SortForExport returns a copy of recs ordered by rating (highest first, absent
// as zero) and then name, renumbered from 1. Membership is unchanged.
func SortForExport(recs []model.BusinessRecord) []model.BusinessRecord {
	out := make([]model.BusinessRecord, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].RatingValue(), out[j].RatingValue()
		if ri != rj {
			return ri > rj
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	for i := range out {
		out[i].Number = i + 1
	}
	return out
}

// Cells renders a row in Header order.
func (r Row) Cells() []string {
	num := ""
	if r.Number > 0 {
		num = strconv.Itoa(r.Number)
	}
	return []string{num, r.Name, r.Phone, r.Location, r.Website, r.Rating}
}
