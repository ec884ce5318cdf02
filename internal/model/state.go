package model

// FocusedElement describes the element currently holding input focus.
// Only identity-level attributes are captured, never the subtree.
type FocusedElement struct {
	Text       string `json:"text,omitempty"`
	ClassName  string `json:"className,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`
}

// DeviceState is the device-level fact sheet served by the phone_state
// route. Every field degrades independently: a failed probe leaves its
// field at the zero value rather than failing the read.
type DeviceState struct {
	CurrentApp      string          `json:"currentApp"`
	PackageName     string          `json:"packageName"`
	KeyboardVisible bool            `json:"keyboardVisible"`
	FocusedElement  *FocusedElement `json:"focusedElement,omitempty"`
}

// Snapshot pairs one forest with the device state read alongside it. The two
// reads are composed back to back, not from a single traversal; neither read
// mutates shared state, so the composite is served without further locking.
type Snapshot struct {
	Tree  *Forest     `json:"a11y_tree"`
	State DeviceState `json:"phone_state"`
}
