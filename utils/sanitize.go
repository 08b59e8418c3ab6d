package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips all HTML from user-supplied free text (vendor names,
// expense notes, inspection remarks) to prevent stored XSS.
func Sanitize(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}
