package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MetricsReader provides real-time access to prometheus metric values
// by reading directly from the registry without network calls. Used
// by the CLI "status" subcommand to report peer health and oplog
// size without scraping an HTTP endpoint.
type MetricsReader struct {
	metrics *Metrics
}

// HistogramStats contains extracted statistics from a histogram.
type HistogramStats struct {
	Count uint64
	Sum   float64
	Avg   float64
	P95   float64
}

func NewMetricsReader(m *Metrics) *MetricsReader {
	return &MetricsReader{metrics: m}
}

func (r *MetricsReader) GetCounterValue(counter prometheus.Counter) (float64, error) {
	var metricDto dto.Metric
	if err := counter.(prometheus.Metric).Write(&metricDto); err != nil {
		return 0, err
	}
	return metricDto.GetCounter().GetValue(), nil
}

func (r *MetricsReader) GetGaugeValue(gauge prometheus.Gauge) (float64, error) {
	var metricDto dto.Metric
	if err := gauge.(prometheus.Metric).Write(&metricDto); err != nil {
		return 0, err
	}
	return metricDto.GetGauge().GetValue(), nil
}

// GetApplySuccessRate calculates the share of received operations that
// were applied rather than rejected.
func (r *MetricsReader) GetApplySuccessRate() float64 {
	applied, err := r.GetCounterValue(r.metrics.OpsAppliedTotal)
	if err != nil {
		return 1.0
	}
	received, err := r.GetCounterValue(r.metrics.OpsReceivedTotal)
	if err != nil || received == 0 {
		return 1.0
	}
	return applied / received
}

func (r *MetricsReader) GetHistogramStats(hist prometheus.Observer) (*HistogramStats, error) {
	var metricDto dto.Metric
	if err := hist.(prometheus.Metric).Write(&metricDto); err != nil {
		return nil, err
	}

	h := metricDto.GetHistogram()
	stats := &HistogramStats{Count: h.GetSampleCount(), Sum: h.GetSampleSum()}
	if stats.Count > 0 {
		stats.Avg = stats.Sum / float64(stats.Count)
	}
	stats.P95 = r.estimatePercentile(h, 0.95)
	return stats, nil
}

func (r *MetricsReader) estimatePercentile(hist *dto.Histogram, percentile float64) float64 {
	totalCount := hist.GetSampleCount()
	if totalCount == 0 {
		return 0
	}
	target := float64(totalCount) * percentile
	for _, bucket := range hist.GetBucket() {
		if float64(bucket.GetCumulativeCount()) >= target {
			return bucket.GetUpperBound()
		}
	}
	return 0
}

// GetPeerRTT returns the last-observed round trip time to a peer.
func (r *MetricsReader) GetPeerRTT(peer string) (float64, error) {
	gauge, err := r.metrics.PeerRTT.GetMetricWithLabelValues(peer)
	if err != nil {
		return 0, fmt.Errorf("failed to get peer rtt for %s: %w", peer, err)
	}
	return r.GetGaugeValue(gauge)
}

// GetAveragePeerRTT averages RTT across a set of known peers,
// skipping any with no recorded sample yet.
func (r *MetricsReader) GetAveragePeerRTT(peers []string) float64 {
	if len(peers) == 0 {
		return 0
	}

	total := 0.0
	valid := 0
	for _, peer := range peers {
		rtt, err := r.GetPeerRTT(peer)
		if err != nil || rtt <= 0 {
			continue
		}
		total += rtt
		valid++
	}
	if valid == 0 {
		return 0
	}
	return total / float64(valid)
}

// GetOplogSize returns the last-recorded size of the operation log.
func (r *MetricsReader) GetOplogSize() (float64, error) {
	return r.GetGaugeValue(r.metrics.OplogSize)
}

// GetHLCDrift returns the most recently observed clock drift in
// seconds against any peer.
func (r *MetricsReader) GetHLCDrift() (float64, error) {
	return r.GetGaugeValue(r.metrics.HLCDriftSeconds)
}
