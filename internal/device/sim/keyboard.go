package sim

import (
	"sync"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
)

// Keyboard simulates the portal IME. It only accepts input while an input
// connection is open, mirroring how the device-side keyboard behaves when a
// text field is focused.
type Keyboard struct {
	mu        sync.Mutex
	connected bool
	reject    bool
	text      string
	keys      []int
	cleared   int
}

// NewKeyboard returns a keyboard with no input connection.
func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

// SetConnected opens or closes the simulated input connection.
func (k *Keyboard) SetConnected(connected bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.connected = connected
}

// SetReject makes the keyboard decline all input while set.
func (k *Keyboard) SetReject(reject bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.reject = reject
}

func (k *Keyboard) InputText(text string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.connected {
		return device.ErrNoInputTarget
	}
	if k.reject {
		return device.ErrInputRejected
	}
	k.text += text
	return nil
}

func (k *Keyboard) ClearText() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.connected {
		return device.ErrNoInputTarget
	}
	k.text = ""
	k.cleared++
	return nil
}

func (k *Keyboard) SendKey(code int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.connected {
		return device.ErrNoInputTarget
	}
	if k.reject {
		return device.ErrInputRejected
	}
	k.keys = append(k.keys, code)
	return nil
}

// Text returns everything typed since the last clear.
func (k *Keyboard) Text() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.text
}

// Keys returns the key codes received so far.
func (k *Keyboard) Keys() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]int, len(k.keys))
	copy(out, k.keys)
	return out
}

// Cleared returns how many times the field was cleared.
func (k *Keyboard) Cleared() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cleared
}
