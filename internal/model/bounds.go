package model

import "fmt"

// Rect is a screen rectangle in pixels, left/top inclusive, right/bottom
// exclusive.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// NewRect builds a Rect from left/top/right/bottom coordinates.
func NewRect(left, top, right, bottom int) Rect {
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int {
	return r.Right - r.Left
}

// Height returns the rectangle height in pixels.
func (r Rect) Height() int {
	return r.Bottom - r.Top
}

// Intersects reports whether r and o share any screen area.
func (r Rect) Intersects(o Rect) bool {
	return r.Left < o.Right && o.Left < r.Right && r.Top < o.Bottom && o.Top < r.Bottom
}

// String renders the rectangle as "left,top,right,bottom", the form used on
// the wire.
func (r Rect) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Left, r.Top, r.Right, r.Bottom)
}
