// Package assemble turns visited entities into business records: it drives a
// navigator one entity at a time, runs the extraction engine over each
// entity's scope, and stamps the result into an immutable record.
package assemble

import (
	"strconv"

	"github.com/sells-group/leadhunter/internal/extract"
	"github.com/sells-group/leadhunter/internal/model"
)

// Assembler builds records from extraction results.
type Assembler struct {
	engine *extract.Engine
}

// NewAssembler creates an Assembler over the given engine.
func NewAssembler(engine *extract.Engine) *Assembler {
	return &Assembler{engine: engine}
}

// Assemble extracts every catalogue field from scope and returns the record
// for sequence number seq. sugg may be nil.
func (a *Assembler) Assemble(seq int, scope extract.Scope, sugg extract.Suggestions) model.BusinessRecord {
	res := a.engine.Extract(scope, sugg)

	rec := model.BusinessRecord{
		Number:       seq,
		Name:         res.Value(extract.FieldName),
		Phone:        res.Value(extract.FieldPhone),
		Address:      res.Value(extract.FieldAddress),
		Hours:        res.Value(extract.FieldHours),
		Website:      res.Value(extract.FieldWebsite),
		PlusCode:     res.Value(extract.FieldPlusCode),
		PlaceID:      res.Value(extract.FieldPlaceID),
		Latitude:     model.NotFound,
		Longitude:    model.NotFound,
		PermalinkURL: scope.Permalink,
		Method:       Method(res),
	}

	if res.Found(extract.FieldRating) {
		if v, err := strconv.ParseFloat(res.Value(extract.FieldRating), 64); err == nil {
			rec.Rating = model.Float(v)
		}
	}
	if res.Found(extract.FieldReviewCount) {
		if n, err := strconv.Atoi(res.Value(extract.FieldReviewCount)); err == nil {
			rec.ReviewCount = model.Int(n)
		}
	}
	if lat, lng, ok := extract.Coordinates(scope.Permalink); ok {
		rec.Latitude, rec.Longitude = lat, lng
	}

	return rec
}

// Method classifies a record by the strategies that filled it. Any assisted
// field makes it AIAssisted; otherwise any regex-resolved panel field makes
// it Regex. Fields derived from the permalink are not counted.
func Method(res extract.Results) model.ExtractionMethod {
	regex := false
	for _, r := range res {
		if !r.Found {
			continue
		}
		if r.Kind == extract.KindAssist {
			return model.MethodAI
		}
		if r.Kind == extract.KindRegex && !r.Derived {
			regex = true
		}
	}
	if regex {
		return model.MethodRegex
	}
	return model.MethodStructured
}
