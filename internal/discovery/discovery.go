// Package discovery scans a document tree for fillable controls and extracts
// the identifying metadata the planner and executor match against.
package discovery

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/dom"
	"github.com/jonathan/applypilot/internal/types"
)

// MaxCandidates bounds one discovery pass to protect against pathological pages.
const MaxCandidates = 300

// textInputTypes are input types treated as plain text fields.
var textInputTypes = map[string]bool{
	"":         true,
	"text":     true,
	"email":    true,
	"tel":      true,
	"url":      true,
	"search":   true,
	"number":   true,
	"password": true,
	"date":     true,
}

// skippedInputTypes are control kinds that are never meaningfully
// auto-fillable. File inputs are excluded here as well; the upload operation
// therefore never resolves a discovered target.
var skippedInputTypes = map[string]bool{
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
	"hidden": true,
	"file":   true,
}

// Discover enumerates interactive, visible, enabled controls in every frame of
// the tree and returns fresh candidates with stable resolution handles.
// Candidates are never cached across navigations. A frame that fails to
// enumerate is skipped so one bad frame does not lose the rest of the tree.
func Discover(ctx context.Context, tree dom.Tree) ([]types.FieldCandidate, error) {
	frames, err := tree.Frames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate document frames: %w", err)
	}

	pass := uuid.New().String()[:8]
	var candidates []types.FieldCandidate
	minted := 0

	for i, frame := range frames {
		nodes, err := frame.Nodes(ctx)
		if err != nil {
			log.Printf("[discovery] skipping inaccessible frame %d: %v", i, err)
			continue
		}
		for _, node := range nodes {
			if len(candidates) >= MaxCandidates {
				log.Printf("[discovery] candidate limit reached (%d), stopping pass", MaxCandidates)
				return candidates, nil
			}
			kind, ok := classify(node)
			if !ok {
				continue
			}
			if node.Disabled() || !node.Visible() {
				continue
			}

			handle := node.Attr(dom.MarkerAttr)
			if handle == "" {
				handle = fmt.Sprintf("f-%s-%d", pass, minted)
				minted++
				if err := node.SetMarker(ctx, handle); err != nil {
					log.Printf("[discovery] failed to mark element: %v", err)
				}
			}

			candidates = append(candidates, types.FieldCandidate{
				FieldID:          node.Attr("name"),
				DOMID:            node.Attr("id"),
				Label:            node.Label(),
				AriaName:         node.AriaName(),
				Placeholder:      node.Attr("placeholder"),
				QuestionText:     node.QuestionText(),
				Kind:             kind,
				Required:         node.Required(),
				ResolutionHandle: handle,
			})
		}
	}

	return candidates, nil
}

// classify maps a node to a candidate kind. The second return is false for
// controls excluded from discovery entirely.
func classify(node dom.Node) (types.FieldKind, bool) {
	switch node.Tag() {
	case "input":
		t := node.Type()
		switch {
		case skippedInputTypes[t]:
			return "", false
		case t == "checkbox":
			return types.KindCheckbox, true
		case t == "radio":
			return types.KindRadio, true
		case textInputTypes[t]:
			return types.KindText, true
		default:
			return types.KindOther, true
		}
	case "textarea":
		return types.KindTextarea, true
	case "select":
		return types.KindSelect, true
	default:
		if node.Editable() {
			return types.KindRichText, true
		}
		return "", false
	}
}
