// Package clockcheck runs a one-shot startup diagnostic against a
// public NTP server: WaveSyncDB's HLC only needs loosely synchronized
// wall clocks to keep ErrClockDrift rare, so this warns an operator
// early rather than leaving them to debug rejected writes later.
package clockcheck

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"go.uber.org/zap"
)

// Result is the outcome of a single startup clock check.
type Result struct {
	Offset  time.Duration
	Healthy bool
	Err     error
}

// defaultThreshold is the offset above which a node is warned that its
// wall clock may push it past HLCMaxDrift when talking to peers.
const defaultThreshold = 500 * time.Millisecond

// Check queries server once and logs a warning if the local clock is
// offset beyond threshold (or defaultThreshold if threshold <= 0).
// It never returns an error: a failed NTP query is logged and
// treated as "unknown", not fatal to startup.
func Check(server string, threshold time.Duration, logger *zap.Logger) Result {
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	resp, err := ntp.Query(server)
	if err != nil {
		logger.Warn("startup clock check failed, proceeding without an offset estimate",
			zap.String("server", server), zap.Error(err))
		return Result{Err: err}
	}

	offset := resp.ClockOffset
	healthy := absDuration(offset) < threshold
	if !healthy {
		logger.Warn("local clock offset from NTP exceeds threshold, expect occasional clock-drift rejections",
			zap.String("server", server), zap.Duration("offset", offset), zap.Duration("threshold", threshold))
	} else {
		logger.Debug("startup clock check ok", zap.String("server", server), zap.Duration("offset", offset))
	}
	return Result{Offset: offset, Healthy: healthy}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("clockcheck: error: %v", r.Err)
	}
	return fmt.Sprintf("clockcheck: offset=%v healthy=%v", r.Offset, r.Healthy)
}
