package engine

import (
	"context"
	"time"

	"github.com/arjunv/wavesyncdb/internal/ids"
	"go.uber.org/zap"
)

// antiEntropy drives catch-up replication: whenever a peer is seen for
// the first time (freshly discovered, statically configured at
// startup, or coming back after a partition), it arms a coalescing
// debounce timer, and on expiry republishes this node's entire local
// history to the mesh with a freshly minted op_id per operation. The
// fresh id is what makes the replay visible past the transport's
// dedup cache: peers that already have the op find an equal
// (hlc_time, hlc_counter, node_id) in their log and drop it under
// last-write-wins, and the newly seen peer receives the full history
// it was missing.
type antiEntropy struct {
	engine   *Engine
	debounce time.Duration
	logger   *zap.Logger

	healingEvents chan string
}

func newAntiEntropy(e *Engine, debounce time.Duration, logger *zap.Logger) *antiEntropy {
	return &antiEntropy{
		engine:        e,
		debounce:      debounce,
		logger:        logger,
		healingEvents: make(chan string, 100),
	}
}

// NotifyHealingEvent satisfies HealingListener. It is also the signal
// used for a newly connected peer, not just a recovered one: both mean
// "this peer's view of our history may be behind."
func (a *antiEntropy) NotifyHealingEvent(peer string) {
	select {
	case a.healingEvents <- peer:
	default:
		a.logger.Warn("anti-entropy event queue full, dropping", zap.String("peer", peer))
	}
}

// Run coalesces bursts of healing events (a LAN coming back, several
// peers announcing at once) into a single replay rather than one per
// peer, then replays once the debounce window is quiet.
func (a *antiEntropy) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-a.healingEvents:
			if timer == nil {
				timer = time.NewTimer(a.debounce)
				fire = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(a.debounce)

		case <-fire:
			timer = nil
			fire = nil
			a.replay(ctx)

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// replay reads the full local history and republishes it with a fresh
// op_id per operation, per the push-based catch-up model.
func (a *antiEntropy) replay(ctx context.Context) {
	if a.engine.conn == nil {
		return
	}

	ops, err := a.engine.conn.OpsSince(ctx, 0)
	if err != nil {
		a.logger.Warn("anti-entropy: failed to read local history", zap.Error(err))
		return
	}
	if len(ops) == 0 {
		return
	}

	a.logger.Info("anti-entropy: republishing local history", zap.Int("ops", len(ops)))
	for _, op := range ops {
		op.OpID = ids.NewOpID()
		if err := a.engine.Publish(ctx, op); err != nil {
			a.logger.Warn("anti-entropy: republish failed",
				zap.String("table", op.Table), zap.Error(err))
		}
	}
	a.engine.metrics.AntiEntropyReplaysTotal.Inc()
	a.engine.metrics.AntiEntropyReplayOps.Observe(float64(len(ops)))
}
