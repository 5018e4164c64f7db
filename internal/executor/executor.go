// Package executor applies an ordered fill action list against the live
// document, resolving each action through a cascade of strategies and
// recording per-action success or failure. One unresolved field never aborts
// the batch.
package executor

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/applypilot/internal/dom"
	"github.com/jonathan/applypilot/internal/types"
)

// Execute walks the actions strictly in plan order; later actions may depend
// on DOM mutations caused by earlier ones, so they are never reordered or
// parallelized. Re-running is safe: already-filled values are re-set to the
// same value.
func Execute(ctx context.Context, tree dom.Tree, actions []types.FillAction) (*types.ExecutionResult, error) {
	frames, err := tree.Frames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate document frames: %w", err)
	}

	// Snapshot nodes in the same multi-frame traversal order as discovery.
	var nodes []dom.Node
	for i, frame := range frames {
		frameNodes, err := frame.Nodes(ctx)
		if err != nil {
			log.Printf("[executor] skipping inaccessible frame %d: %v", i, err)
			continue
		}
		nodes = append(nodes, frameNodes...)
	}

	result := &types.ExecutionResult{
		Filled:  []types.AppliedField{},
		Blocked: []string{},
	}

	for _, action := range actions {
		switch action.Operation {
		case types.OpSkip:
			// Skip actions exist purely to preserve ordering/audit; they are
			// never resolved and never recorded.
			continue
		case types.OpUpload:
			// File inputs are never auto-populated.
			result.Blocked = append(result.Blocked, targetLabel(action))
			continue
		}

		node := resolve(action, nodes)
		if node == nil {
			result.Blocked = append(result.Blocked, targetLabel(action))
			continue
		}
		apply(ctx, node, action, result)
	}

	return result, nil
}

// resolve maps an action's hint union back to a live element. First match
// wins; strategies are tried in a fixed order across the node snapshot.
func resolve(action types.FillAction, nodes []dom.Node) dom.Node {
	// 1. Explicit resolution handle written during discovery.
	if h := action.Target.ResolutionHandle; h != "" {
		for _, n := range nodes {
			if n.Attr(dom.MarkerAttr) == h {
				return n
			}
		}
	}

	// 2. Exact match on name attribute or element id.
	if id := action.Target.FieldID; id != "" {
		for _, n := range nodes {
			if n.Attr("name") == id || n.Attr("id") == id {
				return n
			}
		}
	}

	// 3. Label-text match: exact after normalization, then substring
	// containment in either direction.
	if label := action.Target.Label; label != "" {
		for _, n := range nodes {
			if dom.Equal(n.Label(), label) {
				return n
			}
		}
		for _, n := range nodes {
			if dom.Contains(n.Label(), label) || dom.Contains(label, n.Label()) {
				return n
			}
		}
	}

	// 4. Heuristic hint match against placeholder, aria-label, name, and id.
	hint := action.Target.Label
	if hint == "" {
		hint = action.Target.FieldID
	}
	if hint != "" {
		for _, n := range nodes {
			for _, candidate := range []string{n.Attr("placeholder"), n.AriaName(), n.Attr("name"), n.Attr("id")} {
				if candidate != "" && (dom.Contains(candidate, hint) || dom.Contains(hint, candidate)) {
					return n
				}
			}
		}
	}

	return nil
}

// apply performs the typed operation and records the outcome.
func apply(ctx context.Context, node dom.Node, action types.FillAction, result *types.ExecutionResult) {
	label := targetLabel(action)

	record := func(err error) {
		if err != nil {
			log.Printf("[executor] %s on %q failed: %v", action.Operation, label, err)
			result.Blocked = append(result.Blocked, label)
			return
		}
		result.Filled = append(result.Filled, types.AppliedField{Field: label, Value: action.Value})
	}

	switch action.Operation {
	case types.OpFill:
		if node.Editable() {
			record(node.SetText(ctx, action.Value))
		} else {
			record(node.SetValue(ctx, action.Value))
		}
	case types.OpSelect:
		record(applySelect(ctx, node, action.Value))
	case types.OpCheck, types.OpUncheck:
		if !node.Checkable() {
			result.Blocked = append(result.Blocked, label)
			return
		}
		record(node.SetChecked(ctx, action.Operation == types.OpCheck))
	case types.OpClick:
		// A click has no verifiable success signal available synchronously.
		record(node.Click(ctx))
	default:
		result.Blocked = append(result.Blocked, label)
	}
}

// applySelect matches the requested value against option values first, then
// option display labels case-insensitively. When no option matches it falls
// back to force-setting the raw value, still dispatching change events; many
// pages accept free text in a disguised select-like widget, so an exact-match
// failure is not a blocking error.
func applySelect(ctx context.Context, node dom.Node, value string) error {
	if node.Tag() != "select" {
		return node.SetValue(ctx, value)
	}

	options := node.Options()
	for _, o := range options {
		if o.Value == value {
			return node.SelectOption(ctx, o.Value)
		}
	}
	for _, o := range options {
		if strings.EqualFold(o.Label, value) {
			return node.SelectOption(ctx, o.Value)
		}
	}
	return node.SetValue(ctx, value)
}

// targetLabel picks the name an action is reported under.
func targetLabel(action types.FillAction) string {
	switch {
	case action.Target.Label != "":
		return action.Target.Label
	case action.Target.FieldID != "":
		return action.Target.FieldID
	case action.Target.ResolutionHandle != "":
		return action.Target.ResolutionHandle
	default:
		return string(action.Operation)
	}
}
