package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CollapseSpaces trims s and collapses inner whitespace runs to one space
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// UpperText normalizes free text fields stored in upper case (names, legajo, caratula)
func UpperText(s string) string {
	// Casers are stateful, one per call
	return cases.Upper(language.Spanish).String(CollapseSpaces(s))
}

// FoldAccents removes diacritics: "Niñez Coordinación" -> "Ninez Coordinacion"
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SearchKey builds the accent-folded, upper-cased form used for LIKE searches
func SearchKey(parts ...string) string {
	return UpperText(FoldAccents(strings.Join(parts, " ")))
}

// NormalizeDNI strips dots and spaces from a document number and checks it is numeric.
// An empty input yields an empty result.
func NormalizeDNI(raw string) (string, error) {
	dni := strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(raw))
	if dni == "" {
		return "", nil
	}
	for _, r := range dni {
		if r < '0' || r > '9' {
			return "", fieldError("dni", "El DNI debe contener solo números.")
		}
	}
	return dni, nil
}

// likePattern wraps a search term for a LIKE clause
func likePattern(q string) string {
	return "%" + q + "%"
}

func strPtrOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
