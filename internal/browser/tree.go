package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/applypilot/internal/dom"
)

// ErrStale indicates the element is no longer attached to its document,
// usually because the page navigated or re-rendered between passes.
var ErrStale = errors.New("element is stale or detached from the document")

// errFrameGone is returned when a frame's document became unreachable after
// enumeration.
var errFrameGone = errors.New("frame document is no longer reachable")

// evaluate runs a script in the tab and decodes its return value.
func (r *Resource) evaluate(ctx context.Context, script string, out interface{}) error {
	runCtx, cancel := mergeDeadline(r.tab, ctx)
	defer cancel()

	return chromedp.Run(runCtx,
		chromedp.Evaluate(script, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
}

// Tree exposes a tab's document as a dom.Tree.
type Tree struct {
	res *Resource
}

// Frames enumerates the root document and every reachable same-origin nested
// document. Cross-origin frames are skipped inside the page and never appear.
func (t *Tree) Frames(ctx context.Context) ([]dom.Frame, error) {
	var paths [][]int
	if err := t.res.evaluate(ctx, framesScript, &paths); err != nil {
		return nil, fmt.Errorf("enumerating frames: %w", err)
	}
	frames := make([]dom.Frame, 0, len(paths))
	for _, path := range paths {
		frames = append(frames, &Frame{res: t.res, path: path})
	}
	return frames, nil
}

// Frame is one scripting context inside a tab, addressed by its iframe path
// from the root document.
type Frame struct {
	res  *Resource
	path []int
}

// Nodes snapshots the frame's interactive controls in one in-page pass.
func (f *Frame) Nodes(ctx context.Context) ([]dom.Node, error) {
	script := fmt.Sprintf(snapshotScript, jsArg(f.path), jsArg(candidateSelector), jsArg(autoAttr))

	var snaps []nodeSnapshot
	if err := f.res.evaluate(ctx, script, &snaps); err != nil {
		return nil, fmt.Errorf("snapshotting frame: %w", err)
	}
	if snaps == nil {
		return nil, errFrameGone
	}

	nodes := make([]dom.Node, 0, len(snaps))
	for i := range snaps {
		nodes = append(nodes, &Node{res: f.res, path: f.path, snap: snaps[i]})
	}
	return nodes, nil
}

// Text returns the frame's rendered text.
func (f *Frame) Text(ctx context.Context) (string, error) {
	script := fmt.Sprintf(frameTextScript, jsArg(f.path))
	var text string
	if err := f.res.evaluate(ctx, script, &text); err != nil {
		return "", fmt.Errorf("reading frame text: %w", err)
	}
	return text, nil
}

type optionSnapshot struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// nodeSnapshot is the element state extracted atomically by snapshotScript.
type nodeSnapshot struct {
	AutoID       string            `json:"autoId"`
	Tag          string            `json:"tag"`
	Type         string            `json:"type"`
	Attrs        map[string]string `json:"attrs"`
	Label        string            `json:"label"`
	AriaName     string            `json:"ariaName"`
	QuestionText string            `json:"questionText"`
	Visible      bool              `json:"visible"`
	Disabled     bool              `json:"disabled"`
	Required     bool              `json:"required"`
	Editable     bool              `json:"editable"`
	Checkable    bool              `json:"checkable"`
	Options      []optionSnapshot  `json:"options"`
}

// Node is one live element. Read methods serve from the snapshot taken at
// discovery time; mutations resolve the element again by its tag attribute
// and fail with ErrStale when it is gone.
type Node struct {
	res  *Resource
	path []int
	snap nodeSnapshot
}

func (n *Node) Tag() string  { return n.snap.Tag }
func (n *Node) Type() string { return n.snap.Type }

func (n *Node) Attr(name string) string { return n.snap.Attrs[name] }

func (n *Node) Label() string        { return n.snap.Label }
func (n *Node) AriaName() string     { return n.snap.AriaName }
func (n *Node) QuestionText() string { return n.snap.QuestionText }
func (n *Node) Visible() bool        { return n.snap.Visible }
func (n *Node) Disabled() bool       { return n.snap.Disabled }
func (n *Node) Required() bool       { return n.snap.Required }
func (n *Node) Editable() bool       { return n.snap.Editable }
func (n *Node) Checkable() bool      { return n.snap.Checkable }

func (n *Node) Options() []dom.Option {
	if n.snap.Tag != "select" {
		return nil
	}
	opts := make([]dom.Option, 0, len(n.snap.Options))
	for _, o := range n.snap.Options {
		opts = append(opts, dom.Option{Value: o.Value, Label: o.Label})
	}
	return opts
}

// SetMarker writes the resolution marker onto the element and mirrors it into
// the snapshot so Attr reads in the same pass observe it.
func (n *Node) SetMarker(ctx context.Context, value string) error {
	payload := map[string]string{"name": dom.MarkerAttr, "value": value}
	if err := n.mutate(ctx, "marker", payload); err != nil {
		return err
	}
	if n.snap.Attrs == nil {
		n.snap.Attrs = map[string]string{}
	}
	n.snap.Attrs[dom.MarkerAttr] = value
	return nil
}

func (n *Node) SetValue(ctx context.Context, value string) error {
	return n.mutate(ctx, "value", value)
}

func (n *Node) SetText(ctx context.Context, value string) error {
	return n.mutate(ctx, "text", value)
}

func (n *Node) SelectOption(ctx context.Context, value string) error {
	return n.mutate(ctx, "option", value)
}

func (n *Node) SetChecked(ctx context.Context, checked bool) error {
	return n.mutate(ctx, "checked", checked)
}

func (n *Node) Click(ctx context.Context) error {
	return n.mutate(ctx, "click", nil)
}

func (n *Node) mutate(ctx context.Context, op string, value interface{}) error {
	script := fmt.Sprintf(mutateScript,
		jsArg(n.path), jsArg(autoAttr), jsArg(n.snap.AutoID), jsArg(op), jsArg(value))

	var ok bool
	if err := n.res.evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("applying %s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("applying %s: %w", op, ErrStale)
	}
	return nil
}
