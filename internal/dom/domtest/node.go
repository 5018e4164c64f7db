package domtest

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/applypilot/internal/dom"
)

// Node is one synthetic control. Mutations are recorded on the node rather
// than written back into the parsed document, except for the resolution
// marker, which must survive as an attribute for re-resolution.
type Node struct {
	frame *Frame
	sel   *goquery.Selection

	value      string
	valueSet   bool
	text       string
	checked    bool
	checkedSet bool
	clicks     int
	events     []string
}

// Tag returns the lower-case tag name.
func (n *Node) Tag() string {
	return strings.ToLower(goquery.NodeName(n.sel))
}

// Type returns the lower-case type attribute.
func (n *Node) Type() string {
	return strings.ToLower(n.sel.AttrOr("type", ""))
}

// Attr returns the named attribute.
func (n *Node) Attr(name string) string {
	return n.sel.AttrOr(name, "")
}

// Label resolves label[for=id] in the same document, then an ancestor label.
func (n *Node) Label() string {
	if id := n.Attr("id"); id != "" {
		if lbl := n.frame.doc.Find(`label[for="` + id + `"]`); lbl.Length() > 0 {
			return strings.TrimSpace(lbl.First().Text())
		}
	}
	if anc := n.sel.Closest("label"); anc.Length() > 0 {
		return strings.TrimSpace(anc.First().Text())
	}
	return ""
}

// AriaName returns aria-label, or the joined text of aria-labelledby targets.
func (n *Node) AriaName() string {
	if v := n.Attr("aria-label"); v != "" {
		return v
	}
	ids := strings.Fields(n.Attr("aria-labelledby"))
	var parts []string
	for _, id := range ids {
		if ref := n.frame.doc.Find("#" + id); ref.Length() > 0 {
			if txt := strings.TrimSpace(ref.First().Text()); txt != "" {
				parts = append(parts, txt)
			}
		}
	}
	return strings.Join(parts, " ")
}

// QuestionText returns the legend of an enclosing fieldset.
func (n *Node) QuestionText() string {
	if fs := n.sel.Closest("fieldset"); fs.Length() > 0 {
		return strings.TrimSpace(fs.Find("legend").First().Text())
	}
	return ""
}

// Visible honors the hidden attribute and inline display/visibility styles.
func (n *Node) Visible() bool {
	if _, hidden := n.sel.Attr("hidden"); hidden {
		return false
	}
	style := strings.ReplaceAll(strings.ToLower(n.Attr("style")), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}
	return true
}

// Disabled reports the disabled attribute.
func (n *Node) Disabled() bool {
	_, ok := n.sel.Attr("disabled")
	return ok
}

// Required reports the required attribute or aria-required.
func (n *Node) Required() bool {
	if _, ok := n.sel.Attr("required"); ok {
		return true
	}
	return strings.EqualFold(n.Attr("aria-required"), "true")
}

// Editable reports contenteditable or an aria textbox role.
func (n *Node) Editable() bool {
	if strings.EqualFold(n.Attr("contenteditable"), "true") {
		return true
	}
	return strings.EqualFold(n.Attr("role"), "textbox")
}

// Checkable reports whether the control carries a checked-state property.
func (n *Node) Checkable() bool {
	if n.Tag() != "input" {
		return false
	}
	t := n.Type()
	return t == "checkbox" || t == "radio"
}

// Options lists the select's options, falling back to option text when the
// value attribute is absent.
func (n *Node) Options() []dom.Option {
	if n.Tag() != "select" {
		return nil
	}
	var opts []dom.Option
	n.sel.Find("option").Each(func(_ int, o *goquery.Selection) {
		label := strings.TrimSpace(o.Text())
		value, ok := o.Attr("value")
		if !ok {
			value = label
		}
		opts = append(opts, dom.Option{Value: value, Label: label})
	})
	return opts
}

// SetMarker writes the marker attribute into the document so it is observable
// on subsequent passes, matching the live implementation.
func (n *Node) SetMarker(_ context.Context, value string) error {
	n.sel.SetAttr(dom.MarkerAttr, value)
	return nil
}

// SetValue records the value and the mandatory input/change events.
func (n *Node) SetValue(_ context.Context, value string) error {
	n.value = value
	n.valueSet = true
	n.events = append(n.events, "input", "change")
	return nil
}

// SetText records rich-text content and the mandatory input/change events.
func (n *Node) SetText(_ context.Context, value string) error {
	n.text = value
	n.events = append(n.events, "input", "change")
	return nil
}

// SelectOption records the selected value and a change event.
func (n *Node) SelectOption(_ context.Context, value string) error {
	n.value = value
	n.valueSet = true
	n.events = append(n.events, "change")
	return nil
}

// SetChecked records the checked state and a change event.
func (n *Node) SetChecked(_ context.Context, checked bool) error {
	n.checked = checked
	n.checkedSet = true
	n.events = append(n.events, "change")
	return nil
}

// Click records a click.
func (n *Node) Click(_ context.Context) error {
	n.clicks++
	return nil
}

// Value returns the recorded value, for assertions.
func (n *Node) Value() string { return n.value }

// ValueSet reports whether the value property was ever written.
func (n *Node) ValueSet() bool { return n.valueSet }

// TextContent returns the recorded rich-text content.
func (n *Node) TextContent() string { return n.text }

// Checked returns the recorded checked state.
func (n *Node) Checked() bool { return n.checked }

// Clicks returns the recorded click count.
func (n *Node) Clicks() int { return n.clicks }

// Events returns the dispatched synthetic events in order.
func (n *Node) Events() []string { return n.events }
