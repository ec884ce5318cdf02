// Package command turns remote-control requests into capability calls and
// uniform result strings. Every operation answers with "success: …" or
// "error: …" regardless of transport, so the socket routes and the bridge
// tools stay word-for-word interchangeable.
package command

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/settings"
)

// DefaultScreenshotTimeout bounds how long a screenshot command waits for
// the capture capability before giving up.
const DefaultScreenshotTimeout = 5 * time.Second

const (
	okInput = "success: Text input sent via keyboard"
	okClear = "success: Text cleared via keyboard"

	errKeyboardUnavailable = "error: Keyboard IME not available - enable the portal keyboard"
	errNoInputConnection   = "error: No input connection available - ensure a text field is focused"
	errBase64Text          = "error: Unable to decode base64 text"
	errKeyboardRejected    = "error: Keyboard rejected the input"
	errTextRequired        = "error: text parameter is required"
	errKeyCodeRequired     = "error: key_code parameter is required"
	errKeyCodeInteger      = "error: key_code must be an integer"
	errOffsetRequired      = "error: offset parameter is required"
	errOffsetInteger       = "error: offset must be an integer"
	errOverlayUnavailable  = "error: Overlay controller not available"
	errScreenUnavailable   = "error: Screen capture not available"
	errCaptureTimeout      = "error: Screenshot capture timed out"
)

// Config wires a Dispatcher. Provider is required; Settings may be nil when
// nothing should be persisted (the overlay offset is then applied only for
// the lifetime of the process).
type Config struct {
	Provider          *device.Provider
	Settings          *settings.Store
	ScreenshotTimeout time.Duration
	Logger            pslog.Logger
}

// Dispatcher validates command parameters, invokes the matching capability
// and reports the outcome as a prefixed string.
type Dispatcher struct {
	provider *device.Provider
	store    *settings.Store
	timeout  time.Duration
	log      pslog.Logger
}

func New(cfg Config) *Dispatcher {
	timeout := cfg.ScreenshotTimeout
	if timeout <= 0 {
		timeout = DefaultScreenshotTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Dispatcher{
		provider: cfg.Provider,
		store:    cfg.Settings,
		timeout:  timeout,
		log:      logger.With("component", "dispatcher"),
	}
}

// IsError reports whether a dispatcher result string is an error outcome.
func IsError(result string) bool {
	return strings.HasPrefix(result, "error: ")
}

// InputText types text on the device keyboard. The payload arrives either
// base64-encoded under "base64_text" or plain under "text"; the encoded form
// wins when both are present.
func (d *Dispatcher) InputText(params map[string]any) string {
	text, errResult := textParam(params)
	if errResult != "" {
		return errResult
	}
	kb := d.provider.Keyboard
	if kb == nil {
		return errKeyboardUnavailable
	}
	if err := kb.InputText(text); err != nil {
		d.log.Warn("text input failed", "error", err)
		return keyboardError(err)
	}
	d.log.Debug("text input dispatched", "chars", len(text))
	return okInput
}

// ClearText wipes the focused input field.
func (d *Dispatcher) ClearText() string {
	kb := d.provider.Keyboard
	if kb == nil {
		return errKeyboardUnavailable
	}
	if err := kb.ClearText(); err != nil {
		d.log.Warn("text clear failed", "error", err)
		return keyboardError(err)
	}
	return okClear
}

// SendKey delivers a single key event identified by "key_code".
func (d *Dispatcher) SendKey(params map[string]any) string {
	raw, ok := params["key_code"]
	if !ok {
		return errKeyCodeRequired
	}
	code, ok := intValue(raw)
	if !ok {
		return errKeyCodeInteger
	}
	kb := d.provider.Keyboard
	if kb == nil {
		return errKeyboardUnavailable
	}
	if err := kb.SendKey(code); err != nil {
		d.log.Warn("key event failed", "code", code, "error", err)
		return keyboardError(err)
	}
	return fmt.Sprintf("success: Key event sent via keyboard - code: %d", code)
}

// SetOverlayOffset moves the overlay's vertical offset. The new value is
// persisted before the success is reported; a process restart comes back up
// with the offset already applied.
func (d *Dispatcher) SetOverlayOffset(params map[string]any) string {
	raw, ok := params["offset"]
	if !ok {
		return errOffsetRequired
	}
	offset, ok := intValue(raw)
	if !ok {
		return errOffsetInteger
	}
	overlay := d.provider.Overlay
	if overlay == nil {
		return errOverlayUnavailable
	}
	if d.store != nil {
		if err := d.store.SetOverlayOffset(offset); err != nil {
			d.log.Error("overlay offset persist failed", "offset", offset, "error", err)
			return "error: " + err.Error()
		}
	}
	overlay.SetOffset(offset)
	return fmt.Sprintf("success: Overlay offset set to %d", offset)
}

// Screenshot captures the screen and returns the encoded image payload. On
// failure payload is empty and errResult carries the full "error: …" string.
// The wait is bounded; a capture that misses the deadline is cancelled
// best-effort and reported as timed out.
func (d *Dispatcher) Screenshot(hideOverlay bool) (payload, errResult string) {
	screen := d.provider.Screen
	if screen == nil {
		return "", errScreenUnavailable
	}
	future := screen.Capture(device.CaptureOptions{HideOverlay: hideOverlay})
	res, err := future.Await(d.timeout)
	if err != nil {
		if errors.Is(err, device.ErrCaptureTimeout) {
			d.log.Warn("screenshot timed out", "timeout", d.timeout)
			return "", errCaptureTimeout
		}
		return "", "error: " + err.Error()
	}
	if res.Err != nil {
		d.log.Warn("screenshot failed", "error", res.Err)
		return "", "error: " + res.Err.Error()
	}
	return res.Data, ""
}

// textParam resolves the input-text payload, decoding base64_text when
// present and falling back to the plain text parameter.
func textParam(params map[string]any) (text, errResult string) {
	if raw, ok := params["base64_text"]; ok {
		s, ok := raw.(string)
		if !ok {
			return "", errBase64Text
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", errBase64Text
		}
		return string(decoded), ""
	}
	if raw, ok := params["text"]; ok {
		if s, ok := raw.(string); ok {
			return s, ""
		}
	}
	return "", errTextRequired
}

// intValue coerces the parameter representations the wire can produce into
// an int. JSON numbers arrive as float64 and are accepted only when whole.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func keyboardError(err error) string {
	switch {
	case errors.Is(err, device.ErrNoInputTarget):
		return errNoInputConnection
	case errors.Is(err, device.ErrInputRejected):
		return errKeyboardRejected
	default:
		return "error: " + err.Error()
	}
}
