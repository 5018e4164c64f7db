// Package dom abstracts the live document tree as an injected traversal
// interface so the autofill engine's resolution and matching logic can run
// against a real browser or against synthetic fixtures.
package dom

import "context"

// MarkerAttr is the data attribute discovery writes onto elements so later
// passes and the executor can re-resolve them in O(1) without relying on
// fragile name/id attributes.
const MarkerAttr = "data-applypilot-field"

// Option is one entry of a native select element.
type Option struct {
	Value string
	Label string
}

// Node is one interactive element inside a frame. Read methods reflect the
// element at call time using the element's own document and window; mutation
// methods must dispatch synthetic input/change notifications where the
// operation semantics require them.
type Node interface {
	// Tag returns the lower-case tag name.
	Tag() string
	// Type returns the lower-case type attribute for inputs, empty otherwise.
	Type() string
	// Attr returns the value of the named attribute, empty when absent.
	Attr(name string) string
	// Label returns the associated label text resolved through the
	// implementation's label-association mechanism, empty when none.
	Label() string
	// AriaName returns the accessible name from aria-label or resolved
	// aria-labelledby references.
	AriaName() string
	// QuestionText returns surrounding question text (e.g. an enclosing
	// fieldset legend), empty when none.
	QuestionText() string
	// Visible reports whether the element has rendered area and is not
	// hidden by effective style.
	Visible() bool
	// Disabled reports whether the element is disabled.
	Disabled() bool
	// Required reports the required or aria-required attribute. Advisory only.
	Required() bool
	// Editable reports whether the element is a content-editable or
	// aria-textbox rich text target.
	Editable() bool
	// Checkable reports whether the element exposes a checked-state property.
	Checkable() bool
	// Options lists select options in document order, nil for non-selects.
	Options() []Option

	// SetMarker writes the resolution marker attribute onto the element.
	SetMarker(ctx context.Context, value string) error
	// SetValue sets the value property and dispatches input and change events.
	SetValue(ctx context.Context, value string) error
	// SetText sets text content for rich text targets and dispatches input
	// and change events.
	SetText(ctx context.Context, value string) error
	// SelectOption sets the select's value to the given option value and
	// dispatches a change event.
	SelectOption(ctx context.Context, value string) error
	// SetChecked sets the checked state and dispatches a change event.
	SetChecked(ctx context.Context, checked bool) error
	// Click invokes the platform click on the element.
	Click(ctx context.Context) error
}

// Frame is one scripting context: the root document or a same-origin nested
// document reachable from it.
type Frame interface {
	// Nodes returns the frame's interactive-control set in document order.
	Nodes(ctx context.Context) ([]Node, error)
	// Text returns the frame's rendered text, used for confirmation matching.
	Text(ctx context.Context) (string, error)
}

// Tree is the injected document tree. Frames returns the root frame first,
// then reachable same-origin nested frames in traversal order. Implementations
// skip cross-origin frames silently; a frame that fails after enumeration is
// guarded by callers so one bad frame never aborts a pass.
type Tree interface {
	Frames(ctx context.Context) ([]Frame, error)
}
