package sim

import (
	"sync"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

// WindowSpec declares one simulated window and its z-order layer.
type WindowSpec struct {
	Layer int
	Root  Spec
}

// Device is the simulated tree source. All scripting methods are safe to
// call while the portal is serving.
type Device struct {
	mu          sync.Mutex
	screen      model.Rect
	windows     []device.Window
	windowsErr  error
	app         device.AppInfo
	appErr      error
	kbVisible   bool
	kbErr       error
	focused     *Node
	focusedErr  error
	walkStarted chan struct{}
	walkGate    chan struct{}
}

// NewDevice builds a simulated device with the given screen bounds and no
// windows.
func NewDevice(screen model.Rect) *Device {
	return &Device{screen: screen}
}

// Load replaces the window set, building node trees from the specs. It
// returns the root node handles so tests can inspect them afterwards.
func (d *Device) Load(windows ...WindowSpec) []*Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows = nil
	roots := make([]*Node, 0, len(windows))
	for _, w := range windows {
		root := Build(w.Root)
		roots = append(roots, root)
		d.windows = append(d.windows, device.Window{Root: root, Layer: w.Layer})
	}
	return roots
}

// Clear removes all windows, simulating a device with no UI on screen.
func (d *Device) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows = nil
}

// FailWindows makes ActiveWindows return err until reset.
func (d *Device) FailWindows(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windowsErr = err
}

// SetForeground scripts the foreground-app probe.
func (d *Device) SetForeground(pkg, label string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.app = device.AppInfo{PackageName: pkg, Label: label}
	d.appErr = nil
}

// FailForeground makes the foreground-app probe fail.
func (d *Device) FailForeground(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appErr = err
}

// SetKeyboardVisible scripts the keyboard-visibility probe.
func (d *Device) SetKeyboardVisible(visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kbVisible = visible
	d.kbErr = nil
}

// FailKeyboardVisible makes the keyboard-visibility probe fail.
func (d *Device) FailKeyboardVisible(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.kbErr = err
}

// SetFocused scripts the focused-node probe. A nil spec means nothing is
// focused. The built handle is returned so tests can watch its lifecycle.
func (d *Device) SetFocused(s *Spec) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focusedErr = nil
	if s == nil {
		d.focused = nil
		return nil
	}
	d.focused = Build(*s)
	return d.focused
}

// FailFocused makes the focused-node probe fail.
func (d *Device) FailFocused(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focusedErr = err
}

// GateWalks makes the next ActiveWindows call announce itself on the first
// returned channel and then block until the second is closed. Tests use it
// to hold a walk open while probing the single-flight guard.
func (d *Device) GateWalks() (started <-chan struct{}, release chan<- struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.walkStarted = make(chan struct{})
	d.walkGate = make(chan struct{})
	return d.walkStarted, d.walkGate
}

func (d *Device) ActiveWindows() ([]device.Window, error) {
	d.mu.Lock()
	started, gate := d.walkStarted, d.walkGate
	d.walkStarted, d.walkGate = nil, nil
	windows := make([]device.Window, len(d.windows))
	copy(windows, d.windows)
	err := d.windowsErr
	d.mu.Unlock()

	if started != nil {
		close(started)
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return windows, nil
}

func (d *Device) ScreenBounds() (model.Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen, nil
}

func (d *Device) ForegroundApp() (device.AppInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.appErr != nil {
		return device.AppInfo{}, d.appErr
	}
	return d.app, nil
}

func (d *Device) KeyboardVisible() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.kbErr != nil {
		return false, d.kbErr
	}
	return d.kbVisible, nil
}

func (d *Device) FocusedNode() (device.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.focusedErr != nil {
		return nil, d.focusedErr
	}
	if d.focused == nil {
		return nil, nil
	}
	return d.focused, nil
}
