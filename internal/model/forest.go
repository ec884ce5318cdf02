package model

import "encoding/json"

// Forest is one capture of the UI tree: an arena of retained elements plus
// the list of root indexes. Parent/child relationships are stored as arena
// indexes, never as element pointers, so a published forest can be shared
// freely between consumers. A forest is append-only while it is being built
// and must be treated as immutable once published.
type Forest struct {
	elements []Element
	roots    []int
}

// NewForest returns an empty forest.
func NewForest() *Forest {
	return &Forest{}
}

// Add appends el to the arena as a child of the element at arena index
// parent, or as a root when parent is negative. It returns el's arena index.
func (f *Forest) Add(el Element, parent int) int {
	idx := len(f.elements)
	el.parent = parent
	el.children = nil
	f.elements = append(f.elements, el)
	if parent < 0 {
		f.roots = append(f.roots, idx)
	} else {
		f.elements[parent].children = append(f.elements[parent].children, idx)
	}
	return idx
}

// Len returns the number of retained elements.
func (f *Forest) Len() int {
	return len(f.elements)
}

// Roots returns the arena indexes of the root elements in traversal order.
func (f *Forest) Roots() []int {
	return f.roots
}

// Element returns the element at arena index idx.
func (f *Forest) Element(idx int) *Element {
	return &f.elements[idx]
}

// Children returns the arena indexes of the children of the element at idx.
func (f *Forest) Children(idx int) []int {
	return f.elements[idx].children
}

// Parent returns the arena index of the parent of the element at idx, or a
// negative value for roots.
func (f *Forest) Parent(idx int) int {
	return f.elements[idx].parent
}

// Walk visits every element depth-first in traversal order, passing its
// nesting depth starting at 0 for roots.
func (f *Forest) Walk(visit func(el *Element, depth int)) {
	var rec func(idx, depth int)
	rec = func(idx, depth int) {
		visit(&f.elements[idx], depth)
		for _, c := range f.elements[idx].children {
			rec(c, depth+1)
		}
	}
	for _, r := range f.roots {
		rec(r, 0)
	}
}

// elementJSON is the wire form of one element with nested children.
type elementJSON struct {
	ID          string        `json:"id"`
	Index       int           `json:"index"`
	Text        string        `json:"text,omitempty"`
	ClassName   string        `json:"className"`
	ResourceID  string        `json:"resourceId,omitempty"`
	Bounds      string        `json:"bounds"`
	WindowLayer int           `json:"windowLayer"`
	Children    []elementJSON `json:"children,omitempty"`
}

func (f *Forest) wireElement(idx int) elementJSON {
	el := &f.elements[idx]
	out := elementJSON{
		ID:          el.ID,
		Index:       el.DisplayIndex,
		Text:        el.Text,
		ClassName:   el.ClassName,
		ResourceID:  el.ResourceID,
		Bounds:      el.Bounds.String(),
		WindowLayer: el.WindowLayer,
	}
	for _, c := range el.children {
		out.Children = append(out.Children, f.wireElement(c))
	}
	return out
}

// MarshalJSON encodes the forest as a JSON array of nested root elements.
// An empty forest encodes as [], never null.
func (f *Forest) MarshalJSON() ([]byte, error) {
	out := make([]elementJSON, 0, len(f.roots))
	for _, r := range f.roots {
		out = append(out, f.wireElement(r))
	}
	return json.Marshal(out)
}
