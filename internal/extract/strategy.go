package extract

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadhunter/internal/model"
)

// Kind classifies a strategy by its data source.
type Kind string

const (
	KindStructured Kind = "structured"
	KindRegex      Kind = "regex"
	KindAssist     Kind = "assist"
)

// Strategy is one attempt at resolving a field from a scope. Candidates are
// returned in preference order; the engine validates each in turn.
type Strategy interface {
	Name() string
	Kind() Kind
	Candidates(s Scope) []string
}

// Pattern is a compiled regex and the capture group holding the value.
// Group 0 means the whole match.
type Pattern struct {
	Re    *regexp.Regexp
	Group int
}

// P compiles expr into a Pattern.
func P(expr string, group int) Pattern {
	return Pattern{Re: regexp.MustCompile(expr), Group: group}
}

func (p Pattern) all(text string) []string {
	var out []string
	for _, m := range p.Re.FindAllStringSubmatch(text, -1) {
		if p.Group < len(m) && m[p.Group] != "" {
			out = append(out, m[p.Group])
		}
	}
	return out
}

// HandleStrategy reads values out of elements selected by a Match.
type HandleStrategy struct {
	Label string
	Match Match
	Read  func(Element) []string
}

func (h HandleStrategy) Name() string { return h.Label }
func (h HandleStrategy) Kind() Kind   { return KindStructured }

func (h HandleStrategy) Candidates(s Scope) []string {
	var out []string
	for _, e := range s.query(h.Match) {
		if h.Read == nil {
			out = append(out, e.Text)
			continue
		}
		out = append(out, h.Read(e)...)
	}
	return out
}

// AnchoredRegex finds each anchor keyword in the scoped text and applies its
// patterns to a bounded window around the first occurrence.
type AnchoredRegex struct {
	Label    string
	Before   int
	After    int
	Patterns []Pattern
	anchors  []*regexp.Regexp
}

// NewAnchoredRegex builds an AnchoredRegex. With fold set, anchors match
// case-insensitively.
func NewAnchoredRegex(label string, anchors []string, fold bool, before, after int, patterns ...Pattern) AnchoredRegex {
	a := AnchoredRegex{Label: label, Before: before, After: after, Patterns: patterns}
	for _, anchor := range anchors {
		expr := regexp.QuoteMeta(anchor)
		if fold {
			expr = "(?i)" + expr
		}
		a.anchors = append(a.anchors, regexp.MustCompile(expr))
	}
	return a
}

func (a AnchoredRegex) Name() string { return a.Label }
func (a AnchoredRegex) Kind() Kind   { return KindRegex }

func (a AnchoredRegex) Candidates(s Scope) []string {
	var out []string
	for _, re := range a.anchors {
		loc := re.FindStringIndex(s.Text)
		if loc == nil {
			continue
		}
		ctx := window(s.Text, loc[0], a.Before, a.After)
		for _, p := range a.Patterns {
			out = append(out, p.all(ctx)...)
		}
	}
	return out
}

// TextRegex applies patterns to the scoped text, or to its leading Limit
// characters when Limit is positive.
type TextRegex struct {
	Label    string
	Limit    int
	Patterns []Pattern
}

func (t TextRegex) Name() string { return t.Label }
func (t TextRegex) Kind() Kind   { return KindRegex }

func (t TextRegex) Candidates(s Scope) []string {
	text := clip(s.Text, t.Limit)
	var out []string
	for _, p := range t.Patterns {
		out = append(out, p.all(text)...)
	}
	return out
}

// LineScan yields whole lines of the scoped text that Keep accepts, up to
// MaxLines lines examined (0 means all).
type LineScan struct {
	Label    string
	MaxLines int
	Keep     func(line string) bool
}

func (l LineScan) Name() string { return l.Label }
func (l LineScan) Kind() Kind   { return KindRegex }

func (l LineScan) Candidates(s Scope) []string {
	var out []string
	seen := 0
	for _, line := range strings.Split(s.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		seen++
		if l.MaxLines > 0 && seen > l.MaxLines {
			break
		}
		if l.Keep == nil || l.Keep(line) {
			out = append(out, line)
		}
	}
	return out
}

// PermalinkRegex applies patterns to the entity's permalink.
type PermalinkRegex struct {
	Label    string
	Patterns []Pattern
}

func (p PermalinkRegex) Name() string { return p.Label }
func (p PermalinkRegex) Kind() Kind   { return KindStructured }

func (p PermalinkRegex) Candidates(s Scope) []string {
	var out []string
	for _, pat := range p.Patterns {
		out = append(out, pat.all(s.Permalink)...)
	}
	return out
}

// Suggestions are per-field values proposed by an Assistant.
type Suggestions map[Field]string

// SuggestionStrategy offers an assistant's value for one field. It is placed
// ahead of the deterministic chain and is still subject to validation.
type SuggestionStrategy struct {
	Field       Field
	Suggestions Suggestions
}

func (SuggestionStrategy) Name() string { return "assist" }
func (SuggestionStrategy) Kind() Kind   { return KindAssist }

func (a SuggestionStrategy) Candidates(Scope) []string {
	v, ok := a.Suggestions[a.Field]
	if !ok || model.IsSentinel(v) {
		return nil
	}
	return []string{v}
}
