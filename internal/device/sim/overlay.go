package sim

import (
	"sync"

	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

// Overlay records what the device overlay would draw. The screen capturer
// reads it back so overlay state is visible in simulated screenshots.
type Overlay struct {
	mu      sync.Mutex
	forest  *model.Forest
	offset  int
	visible bool
	renders int
}

// NewOverlay returns a visible overlay with zero offset and nothing to draw.
func NewOverlay() *Overlay {
	return &Overlay{visible: true}
}

func (o *Overlay) Render(f *model.Forest) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.forest = f
	o.renders++
}

func (o *Overlay) SetOffset(px int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.offset = px
}

func (o *Overlay) SetVisible(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = on
}

// Forest returns the most recently rendered forest, which may be nil.
func (o *Overlay) Forest() *model.Forest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.forest
}

// Offset returns the current label offset in pixels.
func (o *Overlay) Offset() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.offset
}

// Visible reports whether the overlay is shown.
func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// Renders returns how many forests have been handed to the overlay.
func (o *Overlay) Renders() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.renders
}
