// Package types provides type definitions for structured data used throughout the applypilot system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// FieldKind classifies a discovered interactive control.
type FieldKind string

// FieldKind constants enumerate the control kinds discovery can produce.
const (
	KindText     FieldKind = "text"
	KindTextarea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
	KindCheckbox FieldKind = "checkbox"
	KindRadio    FieldKind = "radio"
	KindRichText FieldKind = "richtext"
	KindFile     FieldKind = "file"
	KindOther    FieldKind = "other"
)

// FieldCandidate represents one discovered interactive element.
// All free-text hint fields are optional and used only for matching;
// none of them is authoritative. Candidates are created fresh on every
// discovery pass and never persisted.
type FieldCandidate struct {
	// FieldID is the best available stable identifier (the explicit name
	// attribute), empty when the element carries none.
	FieldID          string    `json:"field_id,omitempty"`
	DOMID            string    `json:"dom_id,omitempty"`
	Label            string    `json:"label,omitempty"`
	AriaName         string    `json:"aria_name,omitempty"`
	Placeholder      string    `json:"placeholder,omitempty"`
	QuestionText     string    `json:"question_text,omitempty"`
	Kind             FieldKind `json:"kind"`
	Required         bool      `json:"required"`
	// ResolutionHandle is an engine-assigned key, unique within one discovery
	// pass, that re-resolves to the same element for the lifetime of the
	// document even when the element has no usable name or id.
	ResolutionHandle string `json:"resolution_handle"`
}

// Operation identifies the typed action an executor applies to an element.
type Operation string

// Operation constants enumerate the fill action vocabulary.
const (
	OpFill    Operation = "fill"
	OpSelect  Operation = "select"
	OpCheck   Operation = "check"
	OpUncheck Operation = "uncheck"
	OpClick   Operation = "click"
	OpUpload  Operation = "upload"
	OpSkip    Operation = "skip"
)

// TargetHint is the union of hints an executor may use to find the element.
// No single hint is guaranteed present.
type TargetHint struct {
	FieldID          string `json:"field_id,omitempty"`
	Label            string `json:"label,omitempty"`
	ResolutionHandle string `json:"resolution_handle,omitempty"`
}

// FillAction is one instruction to perform against the document.
// A skip action is never resolved or applied; it exists purely to preserve
// ordering and audit.
type FillAction struct {
	Target    TargetHint `json:"target"`
	Operation Operation  `json:"operation"`
	Value     string     `json:"value,omitempty"`
	// Confidence is a 0-1 score from the planner. The executor does not gate
	// on it; it is surfaced to the caller for UI display.
	Confidence float64 `json:"confidence"`
}

// FilledField records one field the planner determined safe to answer directly.
type FilledField struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Suggestion carries free-text guidance the planner could not safely auto-apply.
type Suggestion struct {
	Field      string `json:"field"`
	Suggestion string `json:"suggestion"`
}

// FillPlan is the planner's output for one session attempt.
// Every category in Blocked must never appear as an operation target in
// Actions; this is enforced at plan-construction time, not at execution time.
type FillPlan struct {
	Filled      []FilledField `json:"filled"`
	Suggestions []Suggestion  `json:"suggestions,omitempty"`
	Blocked     []string      `json:"blocked"`
	Actions     []FillAction  `json:"actions"`
}

// AppliedField records one field the executor actually mutated.
type AppliedField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ExecutionResult is the outcome of applying one FillPlan. Blocked lists the
// field labels the executor could not resolve or declined to apply; upload
// operations always land there.
type ExecutionResult struct {
	Filled  []AppliedField `json:"filled"`
	Blocked []string       `json:"blocked"`
}
