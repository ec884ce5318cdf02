package snapshot

import (
	"context"
	"time"

	"pkt.systems/pslog"

	"github.com/douyin-rboot/droidrun-portal/internal/device"
)

// DefaultRefreshInterval is the overlay refresh cadence.
const DefaultRefreshInterval = 250 * time.Millisecond

// Refresher periodically re-walks the tree and hands each forest to the
// overlay renderer. Ticks that collide with an in-flight walk are skipped;
// the overlay simply keeps its previous frame.
type Refresher struct {
	engine   *Engine
	overlay  device.Overlay
	interval time.Duration
	log      pslog.Logger
}

// NewRefresher builds a refresher. overlay may be nil, in which case the
// refresher still keeps Engine.Latest fresh. A non-positive interval falls
// back to DefaultRefreshInterval.
func NewRefresher(engine *Engine, overlay device.Overlay, interval time.Duration, logger pslog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Refresher{
		engine:   engine,
		overlay:  overlay,
		interval: interval,
		log:      logger.With("component", "refresher"),
	}
}

// Run ticks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Debug("refresher started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("refresher stopped")
			return
		case <-ticker.C:
			forest, err := r.engine.Snapshot()
			if err != nil {
				r.log.Debug("refresh tick skipped", "reason", err)
				continue
			}
			if r.overlay != nil {
				r.overlay.Render(forest)
			}
		}
	}
}
