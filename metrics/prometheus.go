package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Proxy = &PrometheusMetrics{}

// PrometheusMetrics exports measurements as gateway_* collectors.
type PrometheusMetrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	treeSize        prometheus.Gauge
	cache           *prometheus.CounterVec
}

func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "query and tx requests by method and outcome",
		}, []string{"method", "outcome"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "request latency by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rebuilds: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_merkle_rebuilds_total",
			Help: "merkle tree rebuilds by outcome",
		}, []string{"outcome"}),
		rebuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_merkle_rebuild_duration_seconds",
			Help:    "time spent rebuilding the merkle tree from the ledger",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		treeSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_merkle_tree_leaves",
			Help: "number of IBC paths in the current merkle tree",
		}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_datum_cache_total",
			Help: "decoded datum cache lookups by result",
		}, []string{"result"}),
	}
}

func (p *PrometheusMetrics) IncrCounter(val float32, keys ...string) {
	if len(keys) < 2 {
		return
	}
	switch keys[0] {
	case KeyRequest:
		if len(keys) == 3 {
			p.requests.WithLabelValues(keys[1], keys[2]).Add(float64(val))
		}
	case KeyMerkle:
		if keys[1] == "rebuild" && len(keys) == 3 {
			p.rebuilds.WithLabelValues(keys[2]).Add(float64(val))
		}
	case KeyCache:
		p.cache.WithLabelValues(keys[1]).Add(float64(val))
	}
}

func (p *PrometheusMetrics) SetGauge(val float32, keys ...string) {
	if len(keys) == 2 && keys[0] == KeyMerkle && keys[1] == "size" {
		p.treeSize.Set(float64(val))
	}
}

func (p *PrometheusMetrics) MeasureSince(start time.Time, keys ...string) {
	if len(keys) < 2 {
		return
	}
	d := time.Since(start).Seconds()
	switch keys[0] {
	case KeyRequest:
		p.requestDuration.WithLabelValues(keys[1]).Observe(d)
	case KeyMerkle:
		p.rebuildDuration.Observe(d)
	}
}

// Serve exposes the default gatherer on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
