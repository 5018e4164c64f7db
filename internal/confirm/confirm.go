// Package confirm decides whether an application was actually submitted by
// scanning page text for configured confirmation phrases. The decision gates
// the terminal session transition; it never accepts optimistically.
package confirm

import (
	"strings"

	"github.com/jonathan/applypilot/internal/dom"
)

// Match holds the accepted phrase when a decision succeeds.
type Match struct {
	Phrase string `json:"phrase"`
}

// Decide checks the page text against every configured phrase. Both sides are
// normalized (lower-cased, non-alphanumeric runs collapsed); a phrase matches
// on substring containment, or, as a fallback, on containment after all
// whitespace is removed, to tolerate pages that inject stray characters
// inside a phrase. With no configured phrases, or none present in the text,
// the result is nil: the transition must be refused.
func Decide(pageText string, phrases []string) *Match {
	normalizedText := dom.Normalize(pageText)
	squashedText := dom.Squash(pageText)

	for _, phrase := range phrases {
		p := dom.Normalize(phrase)
		if p == "" {
			continue
		}
		if strings.Contains(normalizedText, p) {
			return &Match{Phrase: phrase}
		}
		if strings.Contains(squashedText, dom.Squash(phrase)) {
			return &Match{Phrase: phrase}
		}
	}
	return nil
}

// Accepted reports whether any configured phrase is present in the page text.
func Accepted(pageText string, phrases []string) bool {
	return Decide(pageText, phrases) != nil
}
