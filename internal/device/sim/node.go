// Package sim is an in-process simulated device. It implements every
// capability in the device package with scriptable behavior: a UI tree built
// from node specs, a keyboard with input-connection semantics, an overlay
// that records what it would draw, and a screen capturer that renders real
// PNG images. It backs `serve --sim` and the test suite.
package sim

import (
	"sync/atomic"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

// Spec declares one simulated UI node. Zero values are fine everywhere;
// ChildrenErr makes Children fail to exercise the subtree-drop path.
type Spec struct {
	Text        string
	Description string
	Class       string
	ResourceID  string
	Bounds      model.Rect
	Clickable   bool
	Editable    bool
	Scrollable  bool
	Children    []Spec
	ChildrenErr error
}

// Node is a simulated UI node handle.
type Node struct {
	spec     Spec
	children []*Node
	recycled atomic.Bool
}

// Build turns a spec tree into a node tree.
func Build(s Spec) *Node {
	n := &Node{spec: s}
	for _, c := range s.Children {
		n.children = append(n.children, Build(c))
	}
	return n
}

func (n *Node) Text() string        { return n.spec.Text }
func (n *Node) Description() string { return n.spec.Description }
func (n *Node) ClassName() string   { return n.spec.Class }
func (n *Node) ResourceID() string  { return n.spec.ResourceID }
func (n *Node) Bounds() model.Rect  { return n.spec.Bounds }
func (n *Node) Clickable() bool     { return n.spec.Clickable }
func (n *Node) Editable() bool      { return n.spec.Editable }
func (n *Node) Scrollable() bool    { return n.spec.Scrollable }

// Children returns the child handles, or the scripted error.
func (n *Node) Children() ([]device.Node, error) {
	if n.spec.ChildrenErr != nil {
		return nil, n.spec.ChildrenErr
	}
	out := make([]device.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out, nil
}

// Recycle marks the handle released.
func (n *Node) Recycle() {
	n.recycled.Store(true)
}

// Recycled reports whether Recycle has been called, for tests asserting
// handle cleanup.
func (n *Node) Recycled() bool {
	return n.recycled.Load()
}

// Descendants returns the node and every node below it, for tests that
// assert recycling across a whole tree.
func (n *Node) Descendants() []*Node {
	out := []*Node{n}
	for _, c := range n.children {
		out = append(out, c.Descendants()...)
	}
	return out
}
