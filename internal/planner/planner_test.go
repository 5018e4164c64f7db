package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/types"
)

func profileFixture() *types.Profile {
	return &types.Profile{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	}
}

func TestBuild_NoProfile(t *testing.T) {
	plan := Build(Input{})

	assert.Empty(t, plan.Actions)
	assert.Empty(t, plan.Filled)
	assert.Empty(t, plan.Suggestions)
	// The fixed categories are always listed, independent of data.
	assert.ElementsMatch(t, ProtectedCategories, plan.Blocked)
}

func TestBuild_StaticMode(t *testing.T) {
	plan := Build(Input{Profile: profileFixture()})

	// Server-only mode degrades to the static triad: no actions.
	assert.Empty(t, plan.Actions)
	require.NotEmpty(t, plan.Filled)

	byField := map[string]types.FilledField{}
	for _, f := range plan.Filled {
		byField[f.Field] = f
	}
	assert.Equal(t, "Jane", byField["first_name"].Value)
	assert.Equal(t, "jane@example.com", byField["email"].Value)

	// No phone on the profile: no phone entry, never a blank fill.
	_, hasPhone := byField["phone"]
	assert.False(t, hasPhone)
}

func TestBuild_LiveMode(t *testing.T) {
	fields := []types.FieldCandidate{
		{FieldID: "first_name", Label: "First Name", Kind: types.KindText, ResolutionHandle: "f-1"},
		{FieldID: "phone", Label: "Phone Number", Kind: types.KindText, ResolutionHandle: "f-2"},
		{FieldID: "country", Label: "Country", Kind: types.KindSelect, ResolutionHandle: "f-3"},
	}
	profile := profileFixture()
	profile.Country = "United States"

	plan := Build(Input{Profile: profile, Fields: fields})

	require.Len(t, plan.Actions, 2)
	assert.Equal(t, types.OpFill, plan.Actions[0].Operation)
	assert.Equal(t, "Jane", plan.Actions[0].Value)
	assert.Equal(t, "f-1", plan.Actions[0].Target.ResolutionHandle)

	assert.Equal(t, types.OpSelect, plan.Actions[1].Operation)
	assert.Equal(t, "United States", plan.Actions[1].Value)

	// Empty phone generates nothing for the phone field.
	for _, a := range plan.Actions {
		assert.NotEqual(t, "phone", a.Target.FieldID)
	}
}

func TestBuild_BlocklistInvariant(t *testing.T) {
	fields := []types.FieldCandidate{
		{FieldID: "veteran_status", Label: "Are you a protected veteran?", Kind: types.KindSelect, ResolutionHandle: "f-1"},
		{FieldID: "gender", Label: "Gender identity", Kind: types.KindSelect, ResolutionHandle: "f-2"},
		{Label: "Do you have a disability?", Kind: types.KindRadio, ResolutionHandle: "f-3"},
		{FieldID: "email", Label: "Email", Kind: types.KindText, ResolutionHandle: "f-4"},
	}

	plan := Build(Input{Profile: profileFixture(), Fields: fields})

	assert.ElementsMatch(t, ProtectedCategories, plan.Blocked)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, "f-4", plan.Actions[0].Target.ResolutionHandle)
}

func TestBuild_SuggestionsForNarrativeFields(t *testing.T) {
	fields := []types.FieldCandidate{
		{FieldID: "cover_letter", Label: "Why do you want to work here?", Kind: types.KindTextarea, ResolutionHandle: "f-1"},
	}
	resume := &types.Resume{Name: "backend-2026"}

	plan := Build(Input{Profile: profileFixture(), Resume: resume, Fields: fields})

	// The planner never auto-writes free-form narrative content.
	assert.Empty(t, plan.Actions)
	require.Len(t, plan.Suggestions, 1)
	assert.Equal(t, "Why do you want to work here?", plan.Suggestions[0].Field)
	assert.Contains(t, plan.Suggestions[0].Suggestion, "backend-2026")
}

func TestBuild_MergeProposalsFiltersProtected(t *testing.T) {
	fields := []types.FieldCandidate{
		{FieldID: "veteran_status", Label: "Veteran status", Kind: types.KindSelect, ResolutionHandle: "f-1"},
		{FieldID: "notice_period", Label: "Notice period", Kind: types.KindText, ResolutionHandle: "f-2"},
	}
	proposed := []types.FillAction{
		// Targets a protected candidate by handle: must be dropped.
		{Target: types.TargetHint{ResolutionHandle: "f-1"}, Operation: types.OpSelect, Value: "I am a veteran", Confidence: 0.99},
		// Protected by its own label hint: must be dropped.
		{Target: types.TargetHint{Label: "Date of birth"}, Operation: types.OpFill, Value: "1990-01-01", Confidence: 0.9},
		// Legitimate: kept, confidence capped.
		{Target: types.TargetHint{ResolutionHandle: "f-2"}, Operation: types.OpFill, Value: "2 weeks", Confidence: 0.99},
		// Blank value fill: dropped.
		{Target: types.TargetHint{Label: "Notice period"}, Operation: types.OpFill, Confidence: 0.5},
	}

	plan := Build(Input{Profile: profileFixture(), Fields: fields, Proposed: proposed})

	require.Len(t, plan.Actions, 1)
	got := plan.Actions[0]
	assert.Equal(t, "f-2", got.Target.ResolutionHandle)
	assert.Equal(t, "2 weeks", got.Value)
	assert.LessOrEqual(t, got.Confidence, proposalMaxConfidence)
}

func TestBuild_MergeProposalsSkipsDuplicateTargets(t *testing.T) {
	fields := []types.FieldCandidate{
		{FieldID: "email", Label: "Email", Kind: types.KindText, ResolutionHandle: "f-1"},
	}
	proposed := []types.FillAction{
		{Target: types.TargetHint{ResolutionHandle: "f-1"}, Operation: types.OpFill, Value: "other@example.com"},
	}

	plan := Build(Input{Profile: profileFixture(), Fields: fields, Proposed: proposed})

	require.Len(t, plan.Actions, 1)
	assert.Equal(t, "jane@example.com", plan.Actions[0].Value)
}

func TestProtectedCategory(t *testing.T) {
	tests := []struct {
		name  string
		field types.FieldCandidate
		want  string
	}{
		{"veteran question", types.FieldCandidate{QuestionText: "Are you a protected veteran?"}, "veteran_status"},
		{"eeo field id", types.FieldCandidate{FieldID: "eeo_survey"}, "equal_employment_opportunity"},
		{"disability label", types.FieldCandidate{Label: "Disability status"}, "disability_status"},
		{"age does not match manager", types.FieldCandidate{Label: "Hiring Manager"}, ""},
		{"accented word stays one word", types.FieldCandidate{Label: "Prénom"}, ""},
		{"dob in accented sentence", types.FieldCandidate{Label: "Votre date of birth, s'il vous plaît"}, "age"},
		{"plain field", types.FieldCandidate{Label: "First Name"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProtectedCategory(tt.field))
		})
	}
}
