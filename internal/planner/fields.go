package planner

import "github.com/jonathan/applypilot/internal/types"

// directConfidence is the score attached to directly-known, low-ambiguity
// profile fields.
const directConfidence = 0.95

// selectConfidence is the score attached to planner-resolved select steps.
const selectConfidence = 0.8

// proposalMaxConfidence caps scores on externally proposed actions; they are
// untrusted suggestions, never certainties.
const proposalMaxConfidence = 0.7

// directField maps a canonical profile field to the question phrases that
// identify it on application pages. Order matters: more specific rules come
// before generic ones and the first matching rule wins per candidate.
type directField struct {
	canonical string
	keywords  []string
	value     func(*types.Profile) string
}

var directFields = []directField{
	{"first_name", []string{"first name", "given name", "fname", "forename"},
		func(p *types.Profile) string { return p.FirstName }},
	{"last_name", []string{"last name", "family name", "surname", "lname"},
		func(p *types.Profile) string { return p.LastName }},
	{"full_name", []string{"full name", "legal name", "your name"},
		func(p *types.Profile) string { return p.FullName() }},
	{"email", []string{"email", "e mail", "email address"},
		func(p *types.Profile) string { return p.Email }},
	{"phone", []string{"phone", "mobile", "telephone", "cell"},
		func(p *types.Profile) string { return p.Phone }},
	{"city", []string{"city", "town", "current location"},
		func(p *types.Profile) string { return p.City }},
	{"country", []string{"country"},
		func(p *types.Profile) string { return p.Country }},
	{"linkedin", []string{"linkedin", "linkedin profile", "linkedin url"},
		func(p *types.Profile) string { return p.LinkedIn }},
	{"website", []string{"website", "portfolio", "personal site"},
		func(p *types.Profile) string { return p.Website }},
}

// matchDirect returns the first direct rule identifying the candidate, or nil.
func matchDirect(field types.FieldCandidate) *directField {
	hint := hintText(field)
	for i := range directFields {
		for _, kw := range directFields[i].keywords {
			if containsPhrase(hint, kw) {
				return &directFields[i]
			}
		}
	}
	return nil
}
