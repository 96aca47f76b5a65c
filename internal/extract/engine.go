package extract

import (
	"regexp"
	"strings"
)

// Field names a record field resolved by the engine.
type Field string

const (
	FieldName        Field = "name"
	FieldRating      Field = "rating"
	FieldReviewCount Field = "reviews_count"
	FieldPhone       Field = "phone"
	FieldAddress     Field = "address"
	FieldHours       Field = "hours"
	FieldWebsite     Field = "website"
	FieldPlusCode    Field = "plus_code"
	FieldPlaceID     Field = "place_id"
)

// FieldSpec is the strategy chain and validator for one field.
type FieldSpec struct {
	Field      Field
	Strategies []Strategy
	Validate   func(string) (string, bool)
	Sentinel   string
	// Derived fields come from the permalink rather than the panel and do
	// not count toward a record's extraction method.
	Derived bool
}

// Result is the outcome of one field's chain.
type Result struct {
	Field    Field
	Value    string
	Found    bool
	Strategy string
	Kind     Kind
	Derived  bool
}

// ExtractField walks spec's strategies in order and returns the first
// candidate that validates, or the sentinel. A strategy that panics is
// treated as having no match.
func ExtractField(scope Scope, spec FieldSpec) Result {
	for _, st := range spec.Strategies {
		if v, ok := attempt(scope, st, spec.Validate); ok {
			return Result{
				Field:    spec.Field,
				Value:    v,
				Found:    true,
				Strategy: st.Name(),
				Kind:     st.Kind(),
				Derived:  spec.Derived,
			}
		}
	}
	return Result{Field: spec.Field, Value: spec.Sentinel, Derived: spec.Derived}
}

func attempt(scope Scope, st Strategy, validate func(string) (string, bool)) (value string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			value, ok = "", false
		}
	}()
	for _, c := range st.Candidates(scope) {
		if validate == nil {
			if c = strings.TrimSpace(c); c != "" {
				return c, true
			}
			continue
		}
		if v, good := validate(c); good {
			return v, true
		}
	}
	return "", false
}

// Options tunes the text windows used by the regex strategies.
type Options struct {
	// TopWindow bounds the leading text searched for rating and review count.
	TopWindow int
	// AnchorBefore and AnchorAfter bound the window around an anchor keyword.
	AnchorBefore int
	AnchorAfter  int
}

// DefaultOptions returns the standard window sizes.
func DefaultOptions() Options {
	return Options{TopWindow: 500, AnchorBefore: 50, AnchorAfter: 150}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopWindow <= 0 {
		o.TopWindow = d.TopWindow
	}
	if o.AnchorBefore <= 0 {
		o.AnchorBefore = d.AnchorBefore
	}
	if o.AnchorAfter <= 0 {
		o.AnchorAfter = d.AnchorAfter
	}
	return o
}

// Results holds one Result per catalogue field.
type Results map[Field]Result

// Value returns the resolved value or sentinel for f.
func (r Results) Value(f Field) string {
	return r[f].Value
}

// Found reports whether f resolved to a validated value.
func (r Results) Found(f Field) bool {
	return r[f].Found
}

// Engine runs the field catalogue over a scope.
type Engine struct {
	specs []FieldSpec
}

// NewEngine builds an engine over the standard catalogue.
func NewEngine(opts Options) *Engine {
	return &Engine{specs: Catalogue(opts.withDefaults())}
}

// Specs returns the engine's field catalogue in resolution order.
func (e *Engine) Specs() []FieldSpec {
	return e.specs
}

// Extract resolves every catalogue field from scope. When sugg is non-nil
// each field first tries the suggested value. Extract reads nothing but its
// arguments.
func (e *Engine) Extract(scope Scope, sugg Suggestions) Results {
	out := make(Results, len(e.specs))
	for _, spec := range e.specs {
		if sugg != nil && !spec.Derived {
			spec.Strategies = append([]Strategy{SuggestionStrategy{Field: spec.Field, Suggestions: sugg}}, spec.Strategies...)
		}
		out[spec.Field] = ExtractField(scope, spec)
	}
	return out
}

var coordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`),
	regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`),
}

// Coordinates reads latitude and longitude positionally from a permalink:
// the "@lat,lng" form first, then the "!3d<lat>!4d<lng>" form.
func Coordinates(permalink string) (lat, lng string, ok bool) {
	for _, re := range coordPatterns {
		if m := re.FindStringSubmatch(permalink); m != nil {
			return m[1], m[2], true
		}
	}
	return "", "", false
}
