/*
normalize.go - Course and position name canonicalization

PURPOSE:
  Course names arrive from free-text entry, spreadsheets, and catalog
  configuration with inconsistent casing, accents, and whitespace
  ("Seguridad Básica" vs "SEGURIDAD BASICA "). Normalize collapses those
  variants so reconciliation can match them.

ALGORITHM (in order):
  1. Unicode-decompose (NFD) so accented letters split into base letter
     plus combining mark
  2. Strip combining diacritical marks (U+0300..U+036F)
  3. Uppercase
  4. Trim leading/trailing whitespace

GUARANTEES:
  - Total: never fails, empty input yields empty output
  - Idempotent: Normalize(Normalize(s)) == Normalize(s)

LIMITATION (intentional):
  No edit-distance or token-reordering matching. A near-miss typo is a
  different course: it surfaces as both "missing" in the matrix and
  present-but-unmatched in history.

SEE ALSO:
  - matrix.go: Matches required courses against history via Normalize
  - hydrate.go: Matches employee positions against the catalog
*/
package training

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningDiacritics covers the Combining Diacritical Marks block
// (U+0300..U+036F), the marks NFD splits off Latin accented letters.
var combiningDiacritics = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(combiningDiacritics)))

// Normalize canonicalizes a name for comparison. Two course (or position)
// names denote the same thing iff their normalized forms are equal.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	stripped, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		// Malformed UTF-8. Fall back to the raw string; uppercasing and
		// trimming still apply, and the function stays total.
		stripped = s
	}
	return strings.TrimSpace(strings.ToUpper(stripped))
}
