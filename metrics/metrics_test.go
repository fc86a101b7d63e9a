package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStructMetrics(t *testing.T) {
	m := NewStructMetrics()
	m.IncrCounter(1, KeyMerkle, "rebuild", Outcome(nil))
	m.IncrCounter(1, KeyMerkle, "rebuild", Outcome(nil))
	m.IncrCounter(1, KeyMerkle, "rebuild", Outcome(errors.New("boom")))
	m.SetGauge(1234, KeyMerkle, "size")
	m.MeasureSince(time.Now(), KeyMerkle, "rebuild")

	require.Equal(t, float64(2), m.Counter(KeyMerkle, "rebuild", "ok"))
	require.Equal(t, float64(1), m.Counter(KeyMerkle, "rebuild", "error"))
	require.Equal(t, float64(1234), m.Gauge(KeyMerkle, "size"))

	var buf bytes.Buffer
	m.Report(&buf)
	require.Contains(t, buf.String(), "merkle.size: 1,234")
	require.Contains(t, buf.String(), "merkle.rebuild: n=1")
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.IncrCounter(1, KeyRequest, "PacketCommitment", "ok")
	m.IncrCounter(1, KeyRequest, "PacketCommitment", "ok")
	m.IncrCounter(1, KeyCache, "hit")
	m.SetGauge(7, KeyMerkle, "size")
	m.MeasureSince(time.Now(), KeyRequest, "PacketCommitment")
	// malformed keys are ignored
	m.IncrCounter(1, KeyRequest)

	require.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues("PacketCommitment", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.cache.WithLabelValues("hit")))
	require.Equal(t, float64(7), testutil.ToFloat64(m.treeSize))
}
