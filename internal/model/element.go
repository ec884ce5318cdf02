package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// idTextChars is how many leading characters of an element's text feed its
// identity hash. Longer text can change without changing the identity.
const idTextChars = 10

// Element is one UI node retained during a traversal.
type Element struct {
	ID           string    // Stable identity hash, see ElementID
	DisplayIndex int       // 1-based ordinal in traversal order, unique per capture
	Text         string    // Resolved display text (literal, description, or id/class suffix)
	ClassName    string    // Platform widget class, e.g. android.widget.TextView
	ResourceID   string    // Platform resource identifier, may be empty
	Bounds       Rect      // On-screen bounds in pixels
	WindowLayer  int       // Z-order of the window the element belongs to
	CreatedAt    time.Time // When the traversal captured the element

	parent   int   // arena index of the parent, -1 for roots
	children []int // arena indexes in traversal order
}

// ElementID derives the stable identity hash for an element from its bounds,
// class name, and the first few characters of its text. The hash is not
// globally unique over time; it is stable for an unchanged element across
// consecutive captures, which is what overlay labels and clients correlate on.
func ElementID(bounds Rect, className, text string) string {
	runes := []rune(text)
	if len(runes) > idTextChars {
		runes = runes[:idTextChars]
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", bounds.String(), className, string(runes))
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
