package dom

import (
	"strings"
	"unicode"
)

// Normalize lower-cases s and collapses every run of non-alphanumeric
// characters to a single space. Letters and digits from any script count as
// alphanumeric, so accented names stay single words. This is the one
// normalization routine shared by discovery matching, the executor's
// resolution cascade, and the submission confirmation matcher.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Squash is Normalize with all remaining whitespace removed. It tolerates
// pages that inject stray characters inside a phrase.
func Squash(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}

// Contains reports whether the normalized haystack contains the normalized
// needle as a substring. An empty needle never matches.
func Contains(haystack, needle string) bool {
	n := Normalize(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// Equal reports whether two strings are identical after normalization.
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}
