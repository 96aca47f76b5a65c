// Package dedupe reconciles a batch of extracted business records into a
// unique set, joining on normalized phone numbers and business names.
package dedupe

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/leadhunter/internal/model"
	"github.com/sells-group/leadhunter/internal/validate"
)

// legalSuffixes are trailing name tokens that do not distinguish a business.
var legalSuffixes = map[string]bool{
	"pvt":         true,
	"ltd":         true,
	"limited":     true,
	"inc":         true,
	"llc":         true,
	"corp":        true,
	"corporation": true,
}

// NormalizePhone reduces a phone to its national significant digits. It
// returns "" for absent phones, toll-free numbers, and anything shorter than
// ten digits once the country or trunk prefix is removed.
func NormalizePhone(phone string) string {
	if model.IsSentinel(phone) {
		return ""
	}
	if _, ok := validate.Phone(phone); !ok {
		return ""
	}

	d := validate.Digits(phone)
	switch {
	case strings.HasPrefix(d, "91") && len(d)-2 >= validate.MinPhoneDigits:
		d = d[2:]
	case strings.HasPrefix(d, "0") && len(d)-1 >= validate.MinPhoneDigits:
		d = d[1:]
	}
	if len(d) < validate.MinPhoneDigits {
		return ""
	}
	return d
}

// NormalizeName lowercases and collapses whitespace in a business name and
// strips trailing legal suffixes until none remain, so "Abc Traders Pvt.
// Ltd." and "ABC Traders" share a key.
func NormalizeName(name string) string {
	if model.IsSentinel(name) {
		return ""
	}

	tokens := strings.Fields(cases.Lower(language.Und).String(norm.NFKC.String(name)))
	for len(tokens) > 1 && legalSuffixes[strings.Trim(tokens[len(tokens)-1], ".,")] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.TrimRight(strings.Join(tokens, " "), ".,")
}
