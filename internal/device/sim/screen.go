package sim

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

// Screen renders simulated screenshots: the device windows as filled boxes,
// plus the overlay's rectangles and index labels unless capture options
// suppress them. Captures run asynchronously like the real capability.
type Screen struct {
	dev     *Device
	overlay *Overlay

	mu    sync.Mutex
	delay time.Duration
	err   error
}

// NewScreen builds a capturer over the given device and overlay. overlay may
// be nil, in which case captures never include overlay drawings.
func NewScreen(dev *Device, overlay *Overlay) *Screen {
	return &Screen{dev: dev, overlay: overlay}
}

// SetDelay adds artificial capture latency. Tests use a delay longer than
// the dispatcher timeout to exercise the bounded wait.
func (s *Screen) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Fail makes subsequent captures report err instead of an image.
func (s *Screen) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Screen) Capture(opts device.CaptureOptions) *device.CaptureFuture {
	cancelled := make(chan struct{})
	var cancelOnce sync.Once
	fut := device.NewCaptureFuture(func() {
		cancelOnce.Do(func() { close(cancelled) })
	})

	s.mu.Lock()
	delay, scriptedErr := s.delay, s.err
	s.mu.Unlock()

	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-cancelled:
				return
			}
		}
		if scriptedErr != nil {
			fut.Complete(device.CaptureResult{Err: scriptedErr})
			return
		}
		data, err := s.render(opts)
		fut.Complete(device.CaptureResult{Data: data, Err: err})
	}()
	return fut
}

func (s *Screen) render(opts device.CaptureOptions) (string, error) {
	screen, err := s.dev.ScreenBounds()
	if err != nil {
		return "", err
	}
	img := image.NewRGBA(image.Rect(0, 0, screen.Width(), screen.Height()))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 18, G: 18, B: 18, A: 255}), image.Point{}, draw.Src)

	windows, err := s.dev.ActiveWindows()
	if err == nil {
		fill := color.RGBA{R: 48, G: 52, B: 64, A: 255}
		for _, w := range windows {
			if w.Root == nil {
				continue
			}
			b := w.Root.Bounds()
			draw.Draw(img, image.Rect(b.Left, b.Top, b.Right, b.Bottom), image.NewUniform(fill), image.Point{}, draw.Src)
		}
	}

	if !opts.HideOverlay && s.overlay != nil && s.overlay.Visible() {
		s.drawOverlay(img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// drawOverlay reproduces what the device overlay shows: a box outline per
// element and its display index drawn at the top-left corner, shifted by the
// configured label offset.
func (s *Screen) drawOverlay(img *image.RGBA) {
	forest := s.overlay.Forest()
	if forest == nil {
		return
	}
	offset := s.overlay.Offset()
	boxColor := color.RGBA{R: 66, G: 133, B: 244, A: 255}
	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	forest.Walk(func(el *model.Element, _ int) {
		b := el.Bounds
		drawBox(img, b.Left, b.Top, b.Right, b.Bottom, boxColor)
		drawLabel(img, fmt.Sprintf("%d", el.DisplayIndex), b.Left+2, b.Top+offset+12, textColor)
	})
}

// drawBox draws a one-pixel rectangle outline clamped to the image bounds.
func drawBox(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	bounds := img.Bounds()
	if x1 < bounds.Min.X {
		x1 = bounds.Min.X
	}
	if y1 < bounds.Min.Y {
		y1 = bounds.Min.Y
	}
	if x2 > bounds.Max.X {
		x2 = bounds.Max.X
	}
	if y2 > bounds.Max.Y {
		y2 = bounds.Max.Y
	}
	if x2 <= x1 || y2 <= y1 {
		return
	}
	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawLabel draws text at the given baseline position.
func drawLabel(img *image.RGBA, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(text)
}
