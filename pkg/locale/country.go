package locale

import (
	"sort"
	"strings"
)

type Country struct {
	Code          string   // ISO 3166-1 alpha-2 country code (e.g., "IL", "US")
	PhonePrefixes []string // Valid phone number prefixes (e.g., ["+972", "972"])
}

// Countries lists the markets guest phone numbers are accepted from.
var Countries = map[string]Country{
	"US": {
		Code:          "US",
		PhonePrefixes: []string{"+1", "1"},
	},
	"GB": {
		Code:          "GB",
		PhonePrefixes: []string{"+44", "44"},
	},
	"IL": {
		Code:          "IL",
		PhonePrefixes: []string{"+972", "972"},
	},
}

// RegionCodes returns the supported region codes in a stable order, for
// callers that try regions one by one when parsing phone numbers.
func RegionCodes() []string {
	codes := make([]string, 0, len(Countries))
	for code := range Countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RegionsForPhone orders the supported regions so that any region whose
// dialing prefix matches the raw input is tried first. Input without a
// recognizable prefix keeps the stable alphabetical order.
func RegionsForPhone(phone string) []string {
	matched := make([]string, 0, 1)
	rest := make([]string, 0, len(Countries))

	for _, code := range RegionCodes() {
		if hasPhonePrefix(Countries[code], phone) {
			matched = append(matched, code)
		} else {
			rest = append(rest, code)
		}
	}
	return append(matched, rest...)
}

func hasPhonePrefix(c Country, phone string) bool {
	for _, prefix := range c.PhonePrefixes {
		if strings.HasPrefix(phone, prefix) {
			return true
		}
	}
	return false
}
