package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The registry is process global, so the disabled and enabled states are
// checked in order within one test.
func TestFSMetrics_NoopThenRegistered(t *testing.T) {
	require.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	noop := NewFSMetrics()
	assert.IsType(t, noopFSMetrics{}, noop)
	noop.RecordOp("read", 0)
	noop.RecordCommit(3, nil)
	assert.NoError(t, Serve(context.Background(), "127.0.0.1:0"), "disabled metrics serve nothing")

	InitRegistry()
	require.True(t, IsEnabled())
	reg := GetRegistry()
	InitRegistry()
	assert.Same(t, reg, GetRegistry(), "second init is ignored")

	m := NewFSMetrics()
	require.IsType(t, &fsMetrics{}, m)

	m.RecordOp("read", 0)
	m.RecordOp("read", 0)
	m.RecordOp("unlink", 2)
	m.RecordFetch(10*time.Millisecond, 128, nil)
	m.RecordFetch(time.Millisecond, 0, errors.New("gone"))
	m.RecordProjection(4)
	m.RecordCommit(2, nil)
	m.RecordCommit(0, errors.New("upload failed"))

	families, err := reg.Gather()
	require.NoError(t, err)

	counters := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range metric.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				counters[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				counters[key] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				counters[key] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, map[string]float64{
		"resultfs_ops_total,op=read,status=success": 2,
		"resultfs_ops_total,op=unlink,status=error": 1,
		"resultfs_fetch_total,status=success":       1,
		"resultfs_fetch_total,status=error":         1,
		"resultfs_fetch_duration_seconds":           2,
		"resultfs_fetch_bytes_total":                128,
		"resultfs_projections_total":                1,
		"resultfs_projected_rows":                   4,
		"resultfs_commits_total,status=success":     1,
		"resultfs_commits_total,status=error":       1,
		"resultfs_committed_rows_total":             2,
	}, counters)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "error", status(true))
	assert.Equal(t, "success", status(false))
}
