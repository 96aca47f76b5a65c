// Package validate holds the field-level sanity checks applied to every
// extracted candidate before it is accepted into a record.
package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Length bands for free-text fields, in characters (exclusive bounds).
const (
	NameMinLen     = 3
	NameMaxLen     = 200
	AddressMinLen  = 10
	AddressMaxLen  = 300
	HoursMaxLen    = 100
	MinPhoneDigits = 10
)

// chromeTerms are labels of UI controls that show up in panel text and get
// picked up as names or addresses.
var chromeTerms = map[string]bool{
	"directions":    true,
	"save":          true,
	"share":         true,
	"call":          true,
	"website":       true,
	"reviews":       true,
	"nearby":        true,
	"send to phone": true,
}

// nonBusinessPrefixes are phone prefixes for toll-free help lines rather than
// the business itself.
var nonBusinessPrefixes = []string{"1800", "1-800", "1 800"}

// IsChrome reports whether s is a UI control label.
func IsChrome(s string) bool {
	return chromeTerms[strings.ToLower(strings.TrimSpace(s))]
}

// Digits returns only the ASCII digits in s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsTollFree reports whether a phone candidate starts with a toll-free prefix.
func IsTollFree(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	for _, p := range nonBusinessPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Rating parses s and accepts it only inside [1.0, 5.0].
func Rating(s string) (float64, bool) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || v < 1.0 || v > 5.0 {
		return 0, false
	}
	return v, true
}

// ReviewCount parses a non-negative count with optional thousands separators.
func ReviewCount(s string) (int, bool) {
	s = strings.NewReplacer(",", "", " ", "", " ", "").Replace(strings.TrimSpace(s))
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Phone accepts a raw phone candidate with at least ten digits that is not a
// toll-free or Google help number. The trimmed candidate is returned as-is.
func Phone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(Digits(s)) < MinPhoneDigits {
		return "", false
	}
	if IsTollFree(s) {
		return "", false
	}
	if strings.Contains(strings.ToLower(s), "google") {
		return "", false
	}
	return s, true
}

// Name accepts a business name inside the plausible length band.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n <= NameMinLen || n >= NameMaxLen || IsChrome(s) {
		return "", false
	}
	return s, true
}

// Address accepts an address inside the plausible length band.
func Address(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n <= AddressMinLen || n >= AddressMaxLen || IsChrome(s) {
		return "", false
	}
	return s, true
}

// Hours accepts a short opening-hours line.
func Hours(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > HoursMaxLen || IsChrome(s) {
		return "", false
	}
	return s, true
}

var googleHostRe = regexp.MustCompile(`(?i)(^|[./])google\.[a-z.]+(/|$)|goo\.gl/|gstatic\.com`)

// Website accepts a bare domain or URL that is not a Google property.
func Website(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ".,;)")
	if s == "" || IsChrome(s) || strings.ContainsAny(s, " \t\n") || !strings.Contains(s, ".") {
		return "", false
	}
	if googleHostRe.MatchString(s) {
		return "", false
	}
	return s, true
}

// NonEmpty accepts any non-blank candidate.
func NonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
