// Package device defines the capability surface the portal drives: the
// UI-tree source, the keyboard, the screen capturer, and the overlay
// renderer. The real implementations live on the device side; the sim
// subpackage provides an in-process stand-in for development and tests.
package device

import (
	"errors"

	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

var (
	// ErrNoInputTarget is returned by keyboard operations when no editable
	// field currently holds an input connection.
	ErrNoInputTarget = errors.New("no active input connection")

	// ErrInputRejected is returned when the keyboard declines the input.
	ErrInputRejected = errors.New("input rejected by keyboard")

	// ErrCaptureTimeout is returned by CaptureFuture.Await when the bounded
	// wait elapses before the capture completes.
	ErrCaptureTimeout = errors.New("screen capture timed out")
)

// Node is one node of the externally-owned UI hierarchy. Attribute reads are
// only valid until Recycle releases the underlying platform handle; the
// snapshot engine owns that lifecycle.
type Node interface {
	Text() string
	Description() string
	ClassName() string
	ResourceID() string
	Bounds() model.Rect
	Clickable() bool
	Editable() bool
	Scrollable() bool

	// Children returns the child nodes in layout order. An error drops the
	// node's subtree from the capture without aborting the traversal.
	Children() ([]Node, error)

	// Recycle releases the platform handle behind the node.
	Recycle()
}

// Window is one visible window root handed out by the tree source.
type Window struct {
	Root  Node
	Layer int
}

// AppInfo identifies the foreground application.
type AppInfo struct {
	PackageName string
	Label       string
}

// TreeSource yields the current state of the device UI on demand.
type TreeSource interface {
	// ActiveWindows returns a root node per visible window, topmost first.
	// An empty slice means no UI is available right now.
	ActiveWindows() ([]Window, error)

	// ScreenBounds returns the visible screen rectangle in pixels.
	ScreenBounds() (model.Rect, error)

	// ForegroundApp identifies the app owning the foreground window.
	ForegroundApp() (AppInfo, error)

	// KeyboardVisible reports whether the soft keyboard is on screen.
	KeyboardVisible() (bool, error)

	// FocusedNode returns the node holding input focus, or nil when none
	// does. The caller recycles the returned node.
	FocusedNode() (Node, error)
}

// Keyboard accepts remote text input on behalf of the focused field.
type Keyboard interface {
	InputText(text string) error
	ClearText() error
	SendKey(code int) error
}

// Overlay positions and feeds the cosmetic element overlay. Calls must be
// cheap and non-blocking; rendering happens elsewhere.
type Overlay interface {
	Render(f *model.Forest)
	SetOffset(px int)
	SetVisible(on bool)
}

// CaptureOptions controls a single screen capture.
type CaptureOptions struct {
	// HideOverlay suppresses the element overlay for the duration of the
	// capture so it does not appear in the image.
	HideOverlay bool
}

// CaptureResult is the outcome of one screen capture. Data carries the
// encoded image exactly as the capability produced it.
type CaptureResult struct {
	Data string
	Err  error
}

// ScreenCapturer starts asynchronous screen captures.
type ScreenCapturer interface {
	// Capture begins a capture and returns immediately; the result is
	// delivered through the returned future.
	Capture(opts CaptureOptions) *CaptureFuture
}

// Provider bundles the device capabilities the portal drives. A nil field
// means the capability is not available; callers degrade per command.
type Provider struct {
	Tree     TreeSource
	Keyboard Keyboard
	Screen   ScreenCapturer
	Overlay  Overlay
}
