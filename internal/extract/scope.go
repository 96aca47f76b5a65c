// Package extract resolves the fields of a business record from the text and
// attributes of one visited entity. Each field is an ordered chain of
// strategies; the first candidate that passes the field's validator wins.
package extract

import (
	"strings"
	"unicode/utf8"
)

// Element is one node of an entity's detail view.
type Element struct {
	Tag   string            `json:"tag"`
	Attrs map[string]string `json:"attrs,omitempty"`
	Text  string            `json:"text,omitempty"`
}

// Attr returns the named attribute.
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// MatchOp is the comparison applied to an attribute value.
type MatchOp int

const (
	OpExists MatchOp = iota
	OpEquals
	OpPrefix
	OpContains
)

// Match selects elements by tag and/or one attribute condition, in the
// spirit of `a[href^="tel:"]` or `[aria-label*="stars" i]`.
type Match struct {
	Tag   string
	Attr  string
	Op    MatchOp
	Value string
	Fold  bool
}

// Matches reports whether e satisfies m.
func (m Match) Matches(e Element) bool {
	if m.Tag != "" && !strings.EqualFold(m.Tag, e.Tag) {
		return false
	}
	if m.Attr == "" {
		return true
	}
	v, ok := e.Attr(m.Attr)
	if !ok {
		return false
	}
	want := m.Value
	if m.Fold {
		v, want = strings.ToLower(v), strings.ToLower(want)
	}
	switch m.Op {
	case OpEquals:
		return v == want
	case OpPrefix:
		return strings.HasPrefix(v, want)
	case OpContains:
		return strings.Contains(v, want)
	default:
		return true
	}
}

// Handles is a collection of elements queryable by attribute.
type Handles interface {
	Query(m Match) []Element
}

// Elements is the in-memory Handles implementation.
type Elements []Element

// Query returns matching elements in document order.
func (es Elements) Query(m Match) []Element {
	var out []Element
	for _, e := range es {
		if m.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Scope is everything the engine may look at for one entity. Nothing outside
// the scope is consulted, so one entity's data never leaks into another's.
type Scope struct {
	Text      string
	Handles   Handles
	Permalink string
}

func (s Scope) query(m Match) []Element {
	if s.Handles == nil {
		return nil
	}
	return s.Handles.Query(m)
}

// clip returns at most the first n characters of s.
func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// window returns the text from before characters ahead of byte offset i to
// after characters past it.
func window(s string, i, before, after int) string {
	lo := i
	for k := 0; k < before && lo > 0; k++ {
		_, size := utf8.DecodeLastRuneInString(s[:lo])
		lo -= size
	}
	return s[lo:i] + clip(s[i:], after)
}
