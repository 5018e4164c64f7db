// Package planner combines profile data, job context, and discovered field
// metadata into an ordered, confidence-scored fill plan, separating safe
// answers from categorically blocked ones. Absence of data degrades to an
// empty plan, never an error.
package planner

import (
	"fmt"

	"github.com/jonathan/applypilot/internal/types"
)

// Input carries everything one planning pass may consult.
type Input struct {
	Profile    *types.Profile
	Resume     *types.Resume
	JobContext string
	// Fields is the live candidate list when executing in embedded mode.
	// Nil degrades to server-only planning: the static
	// filled/suggestions/blocked triad without actions.
	Fields []types.FieldCandidate
	// Proposed carries externally suggested actions (language-model output).
	// They are untrusted and pass the same blocklist filter before merging.
	Proposed []types.FillAction
}

// Build produces the fill plan for one session attempt. The fixed protected
// categories always land in Blocked and never generate an action; this is
// enforced here, at plan-construction time, so the executor's resolution
// cascade cannot discover and fill a blocked category.
func Build(in Input) *types.FillPlan {
	plan := &types.FillPlan{
		Blocked: append([]string(nil), ProtectedCategories...),
	}
	if in.Profile == nil {
		return plan
	}

	if in.Fields == nil {
		buildStatic(in, plan)
	} else {
		buildLive(in, plan)
	}

	mergeProposals(in, plan)
	return plan
}

// buildStatic plans without live field data: every direct rule with non-empty
// profile data yields a filled entry keyed by its canonical name.
func buildStatic(in Input, plan *types.FillPlan) {
	for i := range directFields {
		rule := &directFields[i]
		value := rule.value(in.Profile)
		if value == "" {
			continue
		}
		plan.Filled = append(plan.Filled, types.FilledField{
			Field:      rule.canonical,
			Value:      value,
			Confidence: directConfidence,
		})
	}
}

// buildLive plans against discovered candidates, enriching the plan with
// execution-ready actions.
func buildLive(in Input, plan *types.FillPlan) {
	for _, field := range in.Fields {
		if ProtectedCategory(field) != "" {
			// Blocked categories are excluded here; Blocked already lists
			// the full fixed vocabulary.
			continue
		}

		rule := matchDirect(field)
		if rule == nil {
			if s := suggestionFor(field, in); s != nil {
				plan.Suggestions = append(plan.Suggestions, *s)
			}
			continue
		}
		value := rule.value(in.Profile)
		if value == "" {
			// Absent data yields no action for the field, never a blank fill.
			continue
		}

		switch field.Kind {
		case types.KindText, types.KindTextarea, types.KindRichText:
			plan.Filled = append(plan.Filled, types.FilledField{
				Field: displayName(field, rule.canonical), Value: value, Confidence: directConfidence,
			})
			plan.Actions = append(plan.Actions, types.FillAction{
				Target:     targetFor(field),
				Operation:  types.OpFill,
				Value:      value,
				Confidence: directConfidence,
			})
		case types.KindSelect:
			plan.Filled = append(plan.Filled, types.FilledField{
				Field: displayName(field, rule.canonical), Value: value, Confidence: selectConfidence,
			})
			plan.Actions = append(plan.Actions, types.FillAction{
				Target:     targetFor(field),
				Operation:  types.OpSelect,
				Value:      value,
				Confidence: selectConfidence,
			})
		default:
			// Checkboxes, radios, and files require judgment or are never
			// auto-applied; no direct action is produced for them.
		}
	}
}

// suggestionFor returns free-text guidance for fields the planner never
// auto-writes: narrative textareas and rich text editors.
func suggestionFor(field types.FieldCandidate, in Input) *types.Suggestion {
	if field.Kind != types.KindTextarea && field.Kind != types.KindRichText {
		return nil
	}
	name := displayName(field, "free-text question")
	text := "Requires judgment; review the question and answer manually."
	if in.Resume != nil && in.Resume.Name != "" {
		text = fmt.Sprintf("Requires judgment; draft an answer drawing on resume %q.", in.Resume.Name)
	}
	return &types.Suggestion{Field: name, Suggestion: text}
}

// mergeProposals appends externally proposed actions after the planner's own,
// dropping anything that targets a protected question, duplicates an existing
// target, or carries no value where one is required. Confidence is capped.
func mergeProposals(in Input, plan *types.FillPlan) {
	if len(in.Proposed) == 0 {
		return
	}

	protected := map[string]bool{}
	for _, field := range in.Fields {
		if ProtectedCategory(field) == "" {
			continue
		}
		if field.ResolutionHandle != "" {
			protected["h:"+field.ResolutionHandle] = true
		}
		if field.FieldID != "" {
			protected["f:"+field.FieldID] = true
		}
	}

	taken := map[string]bool{}
	for _, a := range plan.Actions {
		if a.Target.ResolutionHandle != "" {
			taken["h:"+a.Target.ResolutionHandle] = true
		}
		if a.Target.FieldID != "" {
			taken["f:"+a.Target.FieldID] = true
		}
	}

	for _, p := range in.Proposed {
		if p.Operation == types.OpSkip {
			plan.Actions = append(plan.Actions, p)
			continue
		}
		if targetsProtected(p, protected) {
			continue
		}
		if (p.Operation == types.OpFill || p.Operation == types.OpSelect) && p.Value == "" {
			continue
		}
		if p.Target.ResolutionHandle != "" && taken["h:"+p.Target.ResolutionHandle] {
			continue
		}
		if p.Target.FieldID != "" && taken["f:"+p.Target.FieldID] {
			continue
		}
		if p.Confidence > proposalMaxConfidence || p.Confidence <= 0 {
			p.Confidence = proposalMaxConfidence
		}
		plan.Actions = append(plan.Actions, p)
	}
}

// targetsProtected checks a proposal against protected candidates and against
// the category keyword table applied to the proposal's own label hint.
func targetsProtected(a types.FillAction, protected map[string]bool) bool {
	if a.Target.ResolutionHandle != "" && protected["h:"+a.Target.ResolutionHandle] {
		return true
	}
	if a.Target.FieldID != "" && protected["f:"+a.Target.FieldID] {
		return true
	}
	hint := a.Target.Label + " " + a.Target.FieldID
	for _, category := range ProtectedCategories {
		for _, phrase := range categoryKeywords[category] {
			if containsPhrase(hint, phrase) {
				return true
			}
		}
	}
	return false
}

// displayName picks the best human-readable name for a field.
func displayName(field types.FieldCandidate, fallback string) string {
	switch {
	case field.Label != "":
		return field.Label
	case field.AriaName != "":
		return field.AriaName
	case field.FieldID != "":
		return field.FieldID
	case field.Placeholder != "":
		return field.Placeholder
	default:
		return fallback
	}
}

// targetFor builds the executor hint union for a candidate.
func targetFor(field types.FieldCandidate) types.TargetHint {
	return types.TargetHint{
		FieldID:          field.FieldID,
		Label:            field.Label,
		ResolutionHandle: field.ResolutionHandle,
	}
}
