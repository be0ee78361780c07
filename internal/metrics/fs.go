package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FSMetrics records filesystem level activity
type FSMetrics interface {
	// RecordOp counts one dispatched filesystem operation. errno is 0 on success.
	RecordOp(op string, errno int)
	// RecordFetch records one remote locator fetch
	RecordFetch(duration time.Duration, bytes int, err error)
	// RecordProjection records a tree rebuild from a result
	RecordProjection(rows int)
	// RecordCommit records one reconciliation and upload attempt
	RecordCommit(rows int, err error)
}

type noopFSMetrics struct{}

// NewNoopFSMetrics returns an FSMetrics that discards everything
func NewNoopFSMetrics() FSMetrics { return noopFSMetrics{} }

func (noopFSMetrics) RecordOp(string, int) {}
func (noopFSMetrics) RecordFetch(time.Duration, int, error) {}
func (noopFSMetrics) RecordProjection(int) {}
func (noopFSMetrics) RecordCommit(int, error) {}

type fsMetrics struct {
	opsTotal      *prometheus.CounterVec
	fetchTotal    *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	fetchBytes    prometheus.Counter
	projections   prometheus.Counter
	projectedRows prometheus.Gauge
	commitsTotal  *prometheus.CounterVec
	committedRows prometheus.Counter
}

// NewFSMetrics creates a Prometheus backed FSMetrics, or a no-op one when
// metrics are not enabled.
func NewFSMetrics() FSMetrics {
	if !IsEnabled() {
		return NewNoopFSMetrics()
	}

	reg := GetRegistry()

	return &fsMetrics{
		opsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "resultfs_ops_total",
				Help: "Total number of filesystem operations by operation and status",
			},
			[]string{"op", "status"},
		),
		fetchTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "resultfs_fetch_total",
				Help: "Total number of remote locator fetches by status",
			},
			[]string{"status"},
		),
		fetchDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "resultfs_fetch_duration_seconds",
				Help: "Duration of remote locator fetches in seconds",
				Buckets: []float64{
					0.005, // 5ms
					0.05,  // 50ms
					0.25,  // 250ms
					1,     // 1s
					5,     // 5s
				},
			},
		),
		fetchBytes: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "resultfs_fetch_bytes_total",
				Help: "Total bytes fetched from remote locators",
			},
		),
		projections: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "resultfs_projections_total",
				Help: "Total number of tree rebuilds from query results",
			},
		),
		projectedRows: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "resultfs_projected_rows",
				Help: "Number of row directories in the current tree",
			},
		),
		commitsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "resultfs_commits_total",
				Help: "Total number of commits by status",
			},
			[]string{"status"},
		),
		committedRows: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "resultfs_committed_rows_total",
				Help: "Total number of row changes sent upstream",
			},
		),
	}
}

func status(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}

func (m *fsMetrics) RecordOp(op string, errno int) {
	m.opsTotal.WithLabelValues(op, status(errno != 0)).Inc()
}

func (m *fsMetrics) RecordFetch(duration time.Duration, bytes int, err error) {
	m.fetchTotal.WithLabelValues(status(err != nil)).Inc()
	m.fetchDuration.Observe(duration.Seconds())
	if err == nil {
		m.fetchBytes.Add(float64(bytes))
	}
}

func (m *fsMetrics) RecordProjection(rows int) {
	m.projections.Inc()
	m.projectedRows.Set(float64(rows))
}

func (m *fsMetrics) RecordCommit(rows int, err error) {
	m.commitsTotal.WithLabelValues(status(err != nil)).Inc()
	if err == nil {
		m.committedRows.Add(float64(rows))
	}
}
