package snapshot

import (
	"context"
	"errors"

	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
	"github.com/douyin-rboot/droidrun-portal/internal/model"
)

// Aggregator composes forests with device-level state for the read routes.
type Aggregator struct {
	engine *Engine
	tree   device.TreeSource
	log    pslog.Logger
}

// NewAggregator builds an aggregator over the engine and its tree source.
func NewAggregator(engine *Engine, tree device.TreeSource, logger pslog.Logger) *Aggregator {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Aggregator{engine: engine, tree: tree, log: logger.With("component", "aggregator")}
}

// Tree returns a freshly walked forest. When a walk is already in flight it
// serves the most recently published forest instead, or an empty one before
// any walk has completed. It never blocks and never triggers overlapping
// traversals.
func (a *Aggregator) Tree() *model.Forest {
	f, err := a.engine.Snapshot()
	if err == nil {
		return f
	}
	if errors.Is(err, ErrWalkInFlight) {
		if last := a.engine.Latest(); last != nil {
			return last
		}
	}
	return model.NewForest()
}

// DeviceState probes the device-level facts. Each probe degrades
// independently: a failed probe leaves its fields at zero values and the
// read still succeeds.
func (a *Aggregator) DeviceState() model.DeviceState {
	var st model.DeviceState

	if app, err := a.tree.ForegroundApp(); err == nil {
		st.CurrentApp = app.Label
		st.PackageName = app.PackageName
	} else {
		a.log.Debug("foreground app probe failed", "error", err)
	}

	if visible, err := a.tree.KeyboardVisible(); err == nil {
		st.KeyboardVisible = visible
	} else {
		a.log.Debug("keyboard visibility probe failed", "error", err)
	}

	if n, err := a.tree.FocusedNode(); err == nil {
		if n != nil {
			st.FocusedElement = &model.FocusedElement{
				Text:       n.Text(),
				ClassName:  n.ClassName(),
				ResourceID: n.ResourceID(),
			}
			n.Recycle()
		}
	} else {
		a.log.Debug("focused element probe failed", "error", err)
	}

	return st
}

// Combined returns the tree and device state as one payload. The two reads
// run back to back rather than from a single traversal; see the package
// documentation for the consistency contract.
func (a *Aggregator) Combined() model.Snapshot {
	return model.Snapshot{Tree: a.Tree(), State: a.DeviceState()}
}
