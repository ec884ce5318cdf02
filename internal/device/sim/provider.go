package sim

import (
	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

// Parts exposes the concrete simulated capabilities behind a provider so
// callers can script them.
type Parts struct {
	Device   *Device
	Keyboard *Keyboard
	Overlay  *Overlay
	Screen   *Screen
}

// NewProvider assembles a fully wired simulated device provider.
func NewProvider(screen model.Rect) (*device.Provider, *Parts) {
	dev := NewDevice(screen)
	kb := NewKeyboard()
	ov := NewOverlay()
	sc := NewScreen(dev, ov)
	p := &device.Provider{
		Tree:     dev,
		Keyboard: kb,
		Screen:   sc,
		Overlay:  ov,
	}
	return p, &Parts{Device: dev, Keyboard: kb, Overlay: ov, Screen: sc}
}

// Demo loads a small settings-style screen into the device: a full-screen
// frame, a scrollable list with a few labeled rows, and a focused search
// field wired to the keyboard. Used by `serve --sim`.
func Demo(parts *Parts) {
	parts.Device.SetForeground("com.android.settings", "Settings")
	parts.Device.SetKeyboardVisible(false)
	parts.Device.SetFocused(&Spec{
		Class:      "android.widget.EditText",
		ResourceID: "com.android.settings:id/search",
		Bounds:     model.NewRect(24, 96, 696, 168),
		Editable:   true,
	})
	parts.Keyboard.SetConnected(true)
	parts.Device.Load(WindowSpec{
		Layer: 0,
		Root: Spec{
			Class:  "android.widget.FrameLayout",
			Bounds: model.NewRect(0, 0, 720, 1280),
			Children: []Spec{
				{
					Class:      "android.widget.EditText",
					ResourceID: "com.android.settings:id/search",
					Text:       "Search settings",
					Bounds:     model.NewRect(24, 96, 696, 168),
					Clickable:  true,
					Editable:   true,
				},
				{
					Class:      "androidx.recyclerview.widget.RecyclerView",
					ResourceID: "com.android.settings:id/list",
					Bounds:     model.NewRect(0, 200, 720, 1280),
					Scrollable: true,
					Children: []Spec{
						{Class: "android.widget.TextView", Text: "Network & internet", Bounds: model.NewRect(24, 220, 696, 292), Clickable: true},
						{Class: "android.widget.TextView", Text: "Connected devices", Bounds: model.NewRect(24, 300, 696, 372), Clickable: true},
						{Class: "android.widget.TextView", Text: "Apps", Bounds: model.NewRect(24, 380, 696, 452), Clickable: true},
						{Class: "android.widget.TextView", Text: "Battery", Bounds: model.NewRect(24, 460, 696, 532), Clickable: true},
					},
				},
			},
		},
	})
}
