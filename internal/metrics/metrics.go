package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// holds all prometheus metrics
type Metrics struct {
	OpsPublishedTotal prometheus.Counter
	OpsReceivedTotal  prometheus.Counter
	OpsAppliedTotal   prometheus.Counter
	OpsRejectedTotal  *prometheus.CounterVec

	ConflictResolutions *prometheus.CounterVec

	AntiEntropyReplaysTotal prometheus.Counter
	AntiEntropyReplayOps    prometheus.Histogram

	HLCDriftSeconds prometheus.Gauge
	OplogSize       prometheus.Gauge

	RendererErrorsTotal prometheus.Counter

	PeerCount   prometheus.Gauge
	PeerRTT     *prometheus.GaugeVec
	PublishLatency prometheus.Histogram
}

var (
	byNamespaceMu sync.Mutex
	byNamespace   = make(map[string]*Metrics)
)

// create and register all prometheus metrics. The collectors live in
// the process-wide default registry, so a second call with the same
// namespace returns the *Metrics already registered under it.
func NewMetrics(namespace string) *Metrics {
	byNamespaceMu.Lock()
	defer byNamespaceMu.Unlock()
	if m, ok := byNamespace[namespace]; ok {
		return m
	}
	m := &Metrics{
		OpsPublishedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_published_total",
			Help:      "Total local write operations gossiped to peers",
		}),
		OpsReceivedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_received_total",
			Help:      "Total operations received from peers",
		}),
		OpsAppliedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_applied_total",
			Help:      "Total received operations applied to local state",
		}),
		OpsRejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_rejected_total",
			Help:      "Total received operations rejected, by reason",
		}, []string{"reason"}),

		ConflictResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_resolutions_total",
			Help:      "Total LWW conflict resolutions, by outcome",
		}, []string{"outcome"}),

		AntiEntropyReplaysTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anti_entropy_replays_total",
			Help:      "Total anti-entropy replay passes triggered",
		}),
		AntiEntropyReplayOps: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "anti_entropy_replay_ops",
			Help:      "Operations replayed per anti-entropy pass",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),

		HLCDriftSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hlc_drift_seconds",
			Help:      "Most recently observed clock drift against a peer",
		}),
		OplogSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oplog_size",
			Help:      "Number of rows currently retained in the operation log",
		}),

		RendererErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renderer_errors_total",
			Help:      "Total statements that failed literal rendering and were not synced",
		}),

		PeerCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_count",
			Help:      "Current number of known peers",
		}),
		PeerRTT: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_rtt_seconds",
			Help:      "Round trip time to each peer",
		}, []string{"peer"}),
		PublishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_latency_seconds",
			Help:      "Latency of gossip publish fan-out",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	byNamespace[namespace] = m
	return m
}

func (m *Metrics) RecordApplied() {
	m.OpsReceivedTotal.Inc()
	m.OpsAppliedTotal.Inc()
}

func (m *Metrics) RecordRejected(reason string) {
	m.OpsReceivedTotal.Inc()
	m.OpsRejectedTotal.WithLabelValues(reason).Inc()
}
