// Package domtest provides a synthetic dom.Tree implementation backed by
// parsed HTML fixtures, so discovery, planning, and execution can be tested
// without a browser engine. Mutations are recorded in memory together with
// the synthetic events an implementation is required to dispatch.
package domtest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/applypilot/internal/dom"
)

// ErrInaccessible simulates a cross-origin or torn-down frame throwing on access.
var ErrInaccessible = errors.New("frame is not script-accessible")

// controlSelector matches the interactive-control set a frame exposes.
const controlSelector = `input, textarea, select, [contenteditable="true"], [role="textbox"]`

// Tree is a fixed list of frames.
type Tree struct {
	frames []dom.Frame
}

// NewTree builds a tree from the given frames, root first.
func NewTree(frames ...dom.Frame) *Tree {
	return &Tree{frames: frames}
}

// Frames returns the configured frames in order.
func (t *Tree) Frames(_ context.Context) ([]dom.Frame, error) {
	return t.frames, nil
}

// Frame is one synthetic document parsed from an HTML string.
type Frame struct {
	doc   *goquery.Document
	nodes []*Node
}

// NewFrame parses an HTML fragment into a frame.
func NewFrame(html string) (*Frame, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture HTML: %w", err)
	}
	f := &Frame{doc: doc}
	doc.Find(controlSelector).Each(func(_ int, sel *goquery.Selection) {
		f.nodes = append(f.nodes, &Node{frame: f, sel: sel})
	})
	return f, nil
}

// MustFrame is NewFrame for static test fixtures; it panics on parse errors.
func MustFrame(html string) *Frame {
	f, err := NewFrame(html)
	if err != nil {
		panic(err)
	}
	return f
}

// Nodes returns the frame's controls in document order. The same Node
// instances are returned on every call so recorded mutations survive
// repeated passes.
func (f *Frame) Nodes(_ context.Context) ([]dom.Node, error) {
	out := make([]dom.Node, len(f.nodes))
	for i, n := range f.nodes {
		out[i] = n
	}
	return out, nil
}

// Text returns the frame's text content.
func (f *Frame) Text(_ context.Context) (string, error) {
	return f.doc.Text(), nil
}

// NodeFor returns the first control matching the goquery selector, for
// test assertions. Returns nil when nothing matches.
func (f *Frame) NodeFor(selector string) *Node {
	target := f.doc.Find(selector)
	if target.Length() == 0 {
		return nil
	}
	first := target.Get(0)
	for _, n := range f.nodes {
		if n.sel.Get(0) == first {
			return n
		}
	}
	return nil
}

// ErrorFrame fails on every access, standing in for a cross-origin frame.
type ErrorFrame struct{}

// Nodes always fails.
func (ErrorFrame) Nodes(_ context.Context) ([]dom.Node, error) { return nil, ErrInaccessible }

// Text always fails.
func (ErrorFrame) Text(_ context.Context) (string, error) { return "", ErrInaccessible }
