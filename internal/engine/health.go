package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealingListener is notified when a previously unreachable peer
// becomes reachable again, so anti-entropy can catch it up.
type HealingListener interface {
	NotifyHealingEvent(peer string)
}

// maxConsecutiveFailures is how many failed pings in a row before a
// peer is dropped from the connection pool entirely; discovery or a
// future announce re-adds it if it comes back.
const maxConsecutiveFailures = 5

// healthProbe periodically pings every known peer over the gossip
// transport's Ping RPC, tracks up/down transitions, records RTT, and
// fires a healing event the moment a down peer comes back.
type healthProbe struct {
	engine   *Engine
	interval time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	status   map[string]bool
	failures map[string]int

	listener HealingListener
}

func newHealthProbe(e *Engine, interval time.Duration, logger *zap.Logger) *healthProbe {
	return &healthProbe{
		engine:   e,
		interval: interval,
		logger:   logger,
		status:   make(map[string]bool),
		failures: make(map[string]int),
	}
}

func (h *healthProbe) SetHealingListener(l HealingListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listener = l
}

// Run probes every currently connected peer on a ticker, reconciling
// the probed set against the engine's live peer map each round so
// peers added or removed after startup are picked up without restart.
func (h *healthProbe) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, addr := range h.engine.PeerAddresses() {
				h.probeOnce(ctx, addr)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *healthProbe) probeOnce(ctx context.Context, addr string) {
	h.engine.mu.RLock()
	conn, ok := h.engine.peers[addr]
	h.engine.mu.RUnlock()
	if !ok {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	_, err := callPing(pctx, conn, nil)
	rtt := time.Since(start)

	h.mu.Lock()
	up, probed := h.status[addr]
	wasDown := probed && !up
	h.mu.Unlock()

	if err != nil {
		h.logger.Debug("ping failed", zap.String("peer", addr), zap.Error(err))
		h.mu.Lock()
		h.status[addr] = false
		h.failures[addr]++
		failures := h.failures[addr]
		h.mu.Unlock()
		if failures >= maxConsecutiveFailures {
			h.logger.Warn("peer unresponsive, dropping connection", zap.String("peer", addr), zap.Int("failures", failures))
			h.engine.removePeer(addr)
			h.mu.Lock()
			delete(h.failures, addr)
			delete(h.status, addr)
			h.mu.Unlock()
		}
		return
	}

	h.engine.metrics.PeerRTT.WithLabelValues(addr).Set(rtt.Seconds())

	h.mu.Lock()
	h.status[addr] = true
	h.failures[addr] = 0
	listener := h.listener
	h.mu.Unlock()

	if wasDown && listener != nil {
		h.logger.Info("peer reachable again", zap.String("peer", addr))
		listener.NotifyHealingEvent(addr)
	}
}
