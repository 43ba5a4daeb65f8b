package common

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeForm returns the lookup key for a surface form: NFC composed,
// case folded and trimmed.  Models and dictionaries key every entry with it.
func NormalizeForm(form string) string {
	s := strings.TrimSpace(form)
	if s == "" {
		return ""
	}
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(norm.NFC.String(s))
}
