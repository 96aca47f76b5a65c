package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/sells-group/leadhunter/internal/model"
	"github.com/sells-group/leadhunter/internal/validate"
)

// Phone number shapes seen in listing panels: Indian mobile, dashed
// landline, +91 prefixed, and STD-coded numbers.
var phonePatterns = []Pattern{
	P(`\d{5}[ \t]?\d{5}`, 0),
	P(`\d{3,4}[ \t-]?\d{3,4}[ \t-]?\d{4}`, 0),
	P(`\+91[ \t-]?\d{10}`, 0),
	P(`0\d{2,4}[ \t-]?\d{6,8}`, 0),
}

// looseIntlPhone is only trusted inside a keyword window.
var looseIntlPhone = P(`\+?\d[\d \t\-\(\)]{9,}`, 0)

var (
	firstDecimalRe = regexp.MustCompile(`(\d[.,]\d)`)
	reviewsLabelRe = regexp.MustCompile(`(?i)(\d[\d,]*)\s+reviews?`)
	phoneTextRe    = regexp.MustCompile(`[\d \t\+\-\(\)]{10,}`)
	postalCodeRe   = regexp.MustCompile(`\b\d{6}\b|\b\d{3}\s\d{3}\b|\b\d{5}(?:-\d{4})?\b`)
	hasLetterRe    = regexp.MustCompile(`\pL`)
	ratingLineRe   = regexp.MustCompile(`^\d[.,]\d\b`)
)

// Catalogue builds the field chains in resolution order.
func Catalogue(opts Options) []FieldSpec {
	return []FieldSpec{
		nameSpec(),
		ratingSpec(opts),
		reviewCountSpec(opts),
		phoneSpec(opts),
		addressSpec(),
		hoursSpec(opts),
		websiteSpec(),
		plusCodeSpec(),
		placeIDSpec(),
	}
}

func nameSpec() FieldSpec {
	return FieldSpec{
		Field: FieldName,
		Strategies: []Strategy{
			HandleStrategy{Label: "h1", Match: Match{Tag: "h1"}},
			HandleStrategy{Label: "headline", Match: Match{Attr: "class", Op: OpContains, Value: "fontHeadlineLarge"}},
			LineScan{Label: "leading-line", MaxLines: 3, Keep: func(line string) bool {
				return hasLetterRe.MatchString(line) && !ratingLineRe.MatchString(line)
			}},
		},
		Validate: func(s string) (string, bool) {
			s = strings.TrimSpace(s)
			if !hasLetterRe.MatchString(s) {
				return "", false
			}
			return validate.Name(s)
		},
		Sentinel: model.UnknownName,
	}
}

func ratingSpec(opts Options) FieldSpec {
	return FieldSpec{
		Field: FieldRating,
		Strategies: []Strategy{
			HandleStrategy{
				Label: "aria-stars",
				Match: Match{Attr: "aria-label", Op: OpContains, Value: "star", Fold: true},
				Read:  attrMatch("aria-label", firstDecimalRe, 1),
			},
			NewAnchoredRegex("stars-keyword", []string{"stars", "★"}, true, opts.AnchorBefore, opts.AnchorAfter,
				P(`(\d[.,]\d)[\s\x{a0}]*(?:stars?|★)`, 1),
			),
			TextRegex{Label: "top-text", Limit: opts.TopWindow, Patterns: []Pattern{
				P(`(\d\.\d)[\s\x{a0}]*\(\d[\d,]*\)`, 1),
				P(`(\d\.\d)`, 1),
			}},
		},
		Validate: func(s string) (string, bool) {
			v, ok := validate.Rating(s)
			if !ok {
				return "", false
			}
			return strconv.FormatFloat(v, 'f', -1, 64), true
		},
		Sentinel: model.NotAvail,
	}
}

func reviewCountSpec(opts Options) FieldSpec {
	return FieldSpec{
		Field: FieldReviewCount,
		Strategies: []Strategy{
			HandleStrategy{
				Label: "aria-reviews",
				Match: Match{Attr: "aria-label", Op: OpContains, Value: "review", Fold: true},
				Read:  attrMatch("aria-label", reviewsLabelRe, 1),
			},
			TextRegex{Label: "top-text", Limit: opts.TopWindow, Patterns: []Pattern{
				P(`\d[.,]\d[\s\x{a0}]*\((\d[\d,]*)\)`, 1),
				P(`(?i)(\d[\d,]*)\s*(?:reviews?|ratings?)`, 1),
			}},
		},
		Validate: func(s string) (string, bool) {
			n, ok := validate.ReviewCount(s)
			if !ok {
				return "", false
			}
			return strconv.Itoa(n), true
		},
		Sentinel: model.NotAvail,
	}
}

func phoneSpec(opts Options) FieldSpec {
	anchored := append(append([]Pattern{}, phonePatterns...), looseIntlPhone)
	return FieldSpec{
		Field: FieldPhone,
		Strategies: []Strategy{
			HandleStrategy{
				Label: "tel-link",
				Match: Match{Tag: "a", Attr: "href", Op: OpPrefix, Value: "tel:", Fold: true},
				Read: func(e Element) []string {
					href, _ := e.Attr("href")
					return []string{href[len("tel:"):]}
				},
			},
			HandleStrategy{
				Label: "phone-item",
				Match: Match{Attr: "data-item-id", Op: OpContains, Value: "phone", Fold: true},
				Read: func(e Element) []string {
					id, _ := e.Attr("data-item-id")
					out := phoneTextRe.FindAllString(e.Text, -1)
					if i := strings.Index(strings.ToLower(id), "tel:"); i >= 0 {
						out = append(out, id[i+len("tel:"):])
					}
					return out
				},
			},
			HandleStrategy{
				Label: "aria-phone",
				Match: Match{Attr: "aria-label", Op: OpContains, Value: "phone", Fold: true},
				Read: func(e Element) []string {
					label, _ := e.Attr("aria-label")
					return append(phoneTextRe.FindAllString(e.Text, -1), phoneTextRe.FindAllString(label, -1)...)
				},
			},
			NewAnchoredRegex("phone-keyword", []string{"phone", "call", "tel", "contact"}, true,
				opts.AnchorBefore, opts.AnchorAfter, anchored...),
			TextRegex{Label: "full-text", Patterns: phonePatterns},
		},
		Validate: validate.Phone,
		Sentinel: model.NotFound,
	}
}

func addressSpec() FieldSpec {
	return FieldSpec{
		Field: FieldAddress,
		Strategies: []Strategy{
			HandleStrategy{Label: "address-item", Match: Match{Attr: "data-item-id", Op: OpContains, Value: "address", Fold: true}},
			HandleStrategy{
				Label: "aria-address",
				Match: Match{Attr: "aria-label", Op: OpPrefix, Value: "address:", Fold: true},
				Read:  labelAfterColon,
			},
			LineScan{Label: "postal-line", Keep: func(line string) bool {
				return strings.Contains(line, ",") && postalCodeRe.MatchString(line)
			}},
		},
		Validate: validate.Address,
		Sentinel: model.NotFound,
	}
}

func hoursSpec(opts Options) FieldSpec {
	return FieldSpec{
		Field: FieldHours,
		Strategies: []Strategy{
			HandleStrategy{
				Label: "aria-hours",
				Match: Match{Attr: "aria-label", Op: OpContains, Value: "hours", Fold: true},
				Read: func(e Element) []string {
					label, _ := e.Attr("aria-label")
					first, _, _ := strings.Cut(label, ";")
					return []string{first, e.Text}
				},
			},
			NewAnchoredRegex("open-closed", []string{"Open", "Closed"}, false, opts.AnchorBefore, opts.AnchorAfter,
				P(`(?:Open|Closed)[^\n]*?\d{1,2}(?::\d{2})?\s*(?:AM|PM|am|pm)`, 0),
			),
			LineScan{Label: "open-line", Keep: func(line string) bool {
				return (strings.Contains(line, "Open") || strings.Contains(line, "Closed")) && len(line) < validate.HoursMaxLen
			}},
		},
		Validate: validate.Hours,
		Sentinel: model.NotFound,
	}
}

func websiteSpec() FieldSpec {
	return FieldSpec{
		Field: FieldWebsite,
		Strategies: []Strategy{
			HandleStrategy{
				Label: "authority-item",
				Match: Match{Attr: "data-item-id", Op: OpContains, Value: "authority"},
				Read: func(e Element) []string {
					href, _ := e.Attr("href")
					return []string{href, e.Text}
				},
			},
			TextRegex{Label: "url-text", Patterns: []Pattern{P(`https?://[^\s]+|www\.[^\s]+`, 0)}},
		},
		Validate: validate.Website,
		Sentinel: model.NotFound,
	}
}

func plusCodeSpec() FieldSpec {
	return FieldSpec{
		Field: FieldPlusCode,
		Strategies: []Strategy{
			TextRegex{Label: "plus-code", Patterns: []Pattern{P(`[A-Z0-9]{4}\+[A-Z0-9]{2,3}\s+\w+`, 0)}},
		},
		Validate: validate.NonEmpty,
		Sentinel: model.NotFound,
	}
}

func placeIDSpec() FieldSpec {
	return FieldSpec{
		Field: FieldPlaceID,
		Strategies: []Strategy{
			HandleStrategy{
				Label: "data-cid",
				Match: Match{Attr: "data-cid"},
				Read: func(e Element) []string {
					cid, _ := e.Attr("data-cid")
					return []string{cid}
				},
			},
			PermalinkRegex{Label: "permalink", Patterns: []Pattern{
				P(`!1s(0x[0-9a-fA-F]+:0x[0-9a-fA-F]+)`, 1),
				P(`[?&]cid=(\d+)`, 1),
				P(`place_id:([A-Za-z0-9_-]+)`, 1),
				P(`/place/([^/@?]+)`, 1),
			}},
		},
		Validate: validate.NonEmpty,
		Sentinel: model.NotFound,
		Derived:  true,
	}
}

// attrMatch reads an attribute and returns the given group of every match.
func attrMatch(attr string, re *regexp.Regexp, group int) func(Element) []string {
	return func(e Element) []string {
		v, _ := e.Attr(attr)
		var out []string
		for _, m := range re.FindAllStringSubmatch(v, -1) {
			out = append(out, m[group])
		}
		return out
	}
}

// labelAfterColon returns an aria-label with its "Key:" prefix removed.
func labelAfterColon(e Element) []string {
	label, _ := e.Attr("aria-label")
	if _, rest, ok := strings.Cut(label, ":"); ok {
		label = rest
	}
	return []string{strings.TrimFunc(label, unicode.IsSpace)}
}
