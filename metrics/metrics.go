package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Proxy receives gateway measurements. Keys are hierarchical: the first key
// names the subsystem ("request", "merkle", "cache") and the rest refine it.
type Proxy interface {
	IncrCounter(val float32, keys ...string)
	SetGauge(val float32, keys ...string)
	MeasureSince(start time.Time, keys ...string)
}

const (
	KeyRequest = "request"
	KeyMerkle  = "merkle"
	KeyCache   = "cache"
)

// Outcome renders err as the label used for request and rebuild counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ Proxy = &NilMetrics{}

type NilMetrics struct{}

func (*NilMetrics) IncrCounter(float32, ...string)    {}
func (*NilMetrics) SetGauge(float32, ...string)       {}
func (*NilMetrics) MeasureSince(time.Time, ...string) {}

var _ Proxy = &StructMetrics{}

// StructMetrics keeps everything in memory. It backs the `tree-dot` summary
// and tests.
type StructMetrics struct {
	mtx       sync.Mutex
	counters  map[string]float64
	gauges    map[string]float64
	durations map[string][]time.Duration
}

func NewStructMetrics() *StructMetrics {
	return &StructMetrics{
		counters:  make(map[string]float64),
		gauges:    make(map[string]float64),
		durations: make(map[string][]time.Duration),
	}
}

func (s *StructMetrics) IncrCounter(val float32, keys ...string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.counters[strings.Join(keys, ".")] += float64(val)
}

func (s *StructMetrics) SetGauge(val float32, keys ...string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.gauges[strings.Join(keys, ".")] = float64(val)
}

func (s *StructMetrics) MeasureSince(start time.Time, keys ...string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	k := strings.Join(keys, ".")
	s.durations[k] = append(s.durations[k], time.Since(start))
}

func (s *StructMetrics) Counter(keys ...string) float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.counters[strings.Join(keys, ".")]
}

func (s *StructMetrics) Gauge(keys ...string) float64 {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.gauges[strings.Join(keys, ".")]
}

// Report writes a human readable summary of everything recorded so far.
func (s *StructMetrics) Report(w io.Writer) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, k := range sortedKeys(s.counters) {
		fmt.Fprintf(w, "%s: %s\n", k, humanize.Comma(int64(s.counters[k])))
	}
	for _, k := range sortedKeys(s.gauges) {
		fmt.Fprintf(w, "%s: %s\n", k, humanize.Comma(int64(s.gauges[k])))
	}
	for _, k := range sortedKeys(s.durations) {
		ds := s.durations[k]
		var total time.Duration
		for _, d := range ds {
			total += d
		}
		fmt.Fprintf(w, "%s: n=%s total=%s avg=%s\n", k, humanize.Comma(int64(len(ds))),
			total.Round(time.Microsecond), (total / time.Duration(len(ds))).Round(time.Microsecond))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
