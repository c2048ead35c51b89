// Package bibcodes canonicalizes bibliographic document identifiers.
//
// A bibcode is a fixed-width 19-character identifier of the form
// YYYYJJJJJVVVVMPPPPA: a 4-digit year, a 5-character journal abbreviation, a
// 4-character volume, a 1-character qualifier, a 4-character page, and the
// first author's initial. Unused positions are padded with periods.
package bibcodes

import (
	"regexp"
	"strings"
)

// Length is the fixed width of a bibcode.
const Length = 19

var (
	yearRegex    = regexp.MustCompile(`^[12][0-9]{3}$`)
	journalRegex = regexp.MustCompile(`^[A-Za-z&.]{5}$`)
	volumeRegex  = regexp.MustCompile(`^[0-9.]{4}$`)
	pageRegex    = regexp.MustCompile(`^[0-9A-Za-z.]{5}$`)
	initialRegex = regexp.MustCompile(`^[A-Z.:]$`)
)

// Normalize trims surrounding whitespace. Bibcodes are case-sensitive, so no
// case folding happens here.
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// Valid reports whether raw is structurally a bibcode. It checks shape, not
// existence: an identifier can be well-formed without naming a real
// document.
func Valid(raw string) bool {
	if len(raw) != Length {
		return false
	}
	return yearRegex.MatchString(raw[0:4]) &&
		journalRegex.MatchString(raw[4:9]) &&
		volumeRegex.MatchString(raw[9:13]) &&
		pageRegex.MatchString(raw[13:18]) &&
		initialRegex.MatchString(raw[18:19])
}
