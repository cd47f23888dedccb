package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every tag; policies are safe for concurrent use
var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup from free text (detalle, respuesta, observaciones)
// and returns plain text with surrounding whitespace trimmed.
func SanitizeText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}
