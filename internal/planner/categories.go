package planner

import (
	"strings"

	"github.com/jonathan/applypilot/internal/dom"
	"github.com/jonathan/applypilot/internal/types"
)

// ProtectedCategories is the fixed, non-overridable vocabulary of question
// categories that must never be auto-answered, regardless of confidence or
// data availability. Every plan lists all of them in Blocked.
var ProtectedCategories = []string{
	"equal_employment_opportunity",
	"veteran_status",
	"disability_status",
	"race_ethnicity",
	"gender_identity",
	"sexual_orientation",
	"age",
	"religion",
	"citizenship_status",
	"marital_status",
	"criminal_history",
}

// categoryKeywords maps each protected category to the phrases that flag a
// question as belonging to it. Matching is word-bounded over normalized text.
var categoryKeywords = map[string][]string{
	"equal_employment_opportunity": {"equal employment", "eeo", "equal opportunity"},
	"veteran_status":               {"veteran", "military service", "armed forces"},
	"disability_status":            {"disability", "disabled", "impairment", "accommodation"},
	"race_ethnicity":               {"race", "ethnicity", "ethnic", "hispanic", "latino"},
	"gender_identity":              {"gender", "sex", "transgender", "pronouns"},
	"sexual_orientation":           {"sexual orientation", "lgbtq"},
	"age":                          {"age", "date of birth", "birth date", "dob", "year of birth"},
	"religion":                     {"religion", "religious"},
	"citizenship_status":           {"citizenship", "citizen", "nationality", "national origin"},
	"marital_status":               {"marital", "married"},
	"criminal_history":             {"criminal", "felony", "conviction", "convicted"},
}

// ProtectedCategory returns the protected category a candidate's question
// belongs to, or empty when none of its hints flag one.
func ProtectedCategory(field types.FieldCandidate) string {
	hint := hintText(field)
	if hint == "" {
		return ""
	}
	for _, category := range ProtectedCategories {
		for _, phrase := range categoryKeywords[category] {
			if containsPhrase(hint, phrase) {
				return category
			}
		}
	}
	return ""
}

// hintText joins every free-text hint of a candidate for matching.
func hintText(field types.FieldCandidate) string {
	return strings.Join([]string{
		field.Label, field.AriaName, field.Placeholder,
		field.QuestionText, field.FieldID, field.DOMID,
	}, " ")
}

// containsPhrase reports whether phrase appears word-bounded inside text
// after normalization, so "age" never matches "manager".
func containsPhrase(text, phrase string) bool {
	t := dom.Normalize(text)
	p := dom.Normalize(phrase)
	if t == "" || p == "" {
		return false
	}
	return strings.Contains(" "+t+" ", " "+p+" ")
}
