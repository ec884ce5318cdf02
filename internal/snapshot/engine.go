// Package snapshot converts the device's live UI tree into indexed,
// filtered element forests and keeps an overlay-facing copy fresh. At most
// one traversal runs at a time; overlapping callers are turned away rather
// than queued.
package snapshot

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

// MinElementSize is the minimum width and height, in screen pixels, an
// element must exceed to be retained in a forest.
const MinElementSize = 10

// ErrWalkInFlight is returned by Snapshot when another walk is already
// running. It means "no fresh forest right now", not a failure; callers
// fall back to Latest or an empty forest instead of blocking.
var ErrWalkInFlight = errors.New("snapshot walk already in flight")

// Engine walks the device UI tree into forests. Both the periodic refresher
// and on-demand request handlers drive the same engine; the single-flight
// guard keeps their traversals from ever overlapping.
type Engine struct {
	tree device.TreeSource
	log  pslog.Logger

	walking atomic.Bool
	latest  atomic.Pointer[model.Forest]

	// prev holds the node handles taken by the last completed walk. It is
	// only touched inside the walking guard, which makes the walk path the
	// single owner of handle cleanup.
	prev []device.Node
}

// NewEngine builds an engine over the given tree source.
func NewEngine(tree device.TreeSource, logger pslog.Logger) *Engine {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Engine{tree: tree, log: logger.With("component", "snapshot")}
}

// Snapshot performs one traversal and publishes the resulting forest. When
// a walk is already in flight it returns ErrWalkInFlight immediately. A
// device with no UI produces an empty forest, not an error.
func (e *Engine) Snapshot() (*model.Forest, error) {
	if !e.walking.CompareAndSwap(false, true) {
		return nil, ErrWalkInFlight
	}
	defer e.walking.Store(false)

	forest := e.walk()
	e.latest.Store(forest)
	return forest, nil
}

// Latest returns the most recently published forest, or nil before the
// first completed walk. The returned forest is immutable.
func (e *Engine) Latest() *model.Forest {
	return e.latest.Load()
}

func (e *Engine) walk() *model.Forest {
	// Release the previous capture's platform handles before taking new
	// ones; published forests hold plain element copies, never handles.
	for _, n := range e.prev {
		n.Recycle()
	}
	e.prev = e.prev[:0]

	forest := model.NewForest()

	windows, err := e.tree.ActiveWindows()
	if err != nil {
		e.log.Warn("ui tree unavailable", "error", err)
		return forest
	}
	if len(windows) == 0 {
		return forest
	}
	screen, err := e.tree.ScreenBounds()
	if err != nil {
		e.log.Warn("screen bounds unavailable", "error", err)
		return forest
	}

	w := &walker{engine: e, forest: forest, screen: screen, now: time.Now()}
	for _, win := range windows {
		if win.Root == nil {
			continue
		}
		w.visit(win.Root, win.Layer, -1)
	}
	return forest
}

// walker carries the per-traversal state.
type walker struct {
	engine *Engine
	forest *model.Forest
	screen model.Rect
	now    time.Time
}

// visit captures one node and recurses into its children. parent is the
// arena index the node's retained descendants attach to; a filtered node
// passes its own parent down, so retained grandchildren are adopted by the
// nearest retained ancestor. A panic anywhere in the node's subtree drops
// that subtree and lets the traversal continue with its siblings.
func (w *walker) visit(n device.Node, layer, parent int) {
	defer func() {
		if r := recover(); r != nil {
			w.engine.log.Warn("subtree dropped during traversal", "panic", r)
		}
	}()

	w.engine.prev = append(w.engine.prev, n)

	attach := parent
	bounds := n.Bounds()
	if w.retain(bounds) {
		text := resolveText(n)
		el := model.Element{
			ID:           model.ElementID(bounds, n.ClassName(), text),
			DisplayIndex: w.forest.Len() + 1,
			Text:         text,
			ClassName:    n.ClassName(),
			ResourceID:   n.ResourceID(),
			Bounds:       bounds,
			WindowLayer:  layer,
			CreatedAt:    w.now,
		}
		attach = w.forest.Add(el, parent)
	}

	children, err := n.Children()
	if err != nil {
		w.engine.log.Warn("subtree dropped during traversal", "error", err)
		return
	}
	for _, c := range children {
		if c == nil {
			continue
		}
		w.visit(c, layer, attach)
	}
}

// retain applies the element filter: on screen and strictly larger than the
// minimum size in both dimensions.
func (w *walker) retain(b model.Rect) bool {
	return b.Intersects(w.screen) && b.Width() > MinElementSize && b.Height() > MinElementSize
}

// resolveText picks the element's display text: literal text, then the
// accessible description, then the resource-id suffix, then the class-name
// suffix.
func resolveText(n device.Node) string {
	if t := strings.TrimSpace(n.Text()); t != "" {
		return t
	}
	if d := strings.TrimSpace(n.Description()); d != "" {
		return d
	}
	if id := n.ResourceID(); id != "" {
		if i := strings.LastIndex(id, "/"); i >= 0 {
			return id[i+1:]
		}
		return id
	}
	cls := n.ClassName()
	if i := strings.LastIndex(cls, "."); i >= 0 {
		return cls[i+1:]
	}
	return cls
}
