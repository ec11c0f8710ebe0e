package dispatch

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Result labels of dcrud_dispatch_ops_total
const (
	resultOK      = "ok"
	resultError   = "error"
	resultDropped = "dropped"
)

// dispatchMetrics holds the metrics of one dispatcher in its own set, so
// dispatchers with the same name do not share counters.
type dispatchMetrics struct {
	set     *metrics.Set
	ops     map[Op]map[string]*metrics.Counter
	exec    map[Op]*metrics.Histogram
	acquire *metrics.Histogram
	retries *metrics.Counter
}

func newDispatchMetrics(name string, queueLen func() int) *dispatchMetrics {
	s := metrics.NewSet()
	m := &dispatchMetrics{
		set:     s,
		ops:     make(map[Op]map[string]*metrics.Counter, len(allOps)),
		exec:    make(map[Op]*metrics.Histogram, len(allOps)),
		acquire: s.NewHistogram(fmt.Sprintf(`dcrud_dispatch_acquire_seconds{dispatcher=%q}`, name)),
		retries: s.NewCounter(fmt.Sprintf(`dcrud_dispatch_acquire_retries_total{dispatcher=%q}`, name)),
	}
	for _, op := range allOps {
		m.ops[op] = make(map[string]*metrics.Counter, 3)
		for _, result := range []string{resultOK, resultError, resultDropped} {
			m.ops[op][result] = s.NewCounter(fmt.Sprintf(`dcrud_dispatch_ops_total{dispatcher=%q,op=%q,result=%q}`, name, op, result))
		}
		m.exec[op] = s.NewHistogram(fmt.Sprintf(`dcrud_dispatch_exec_seconds{dispatcher=%q,op=%q}`, name, op))
	}
	s.NewGauge(fmt.Sprintf(`dcrud_dispatch_queue_length{dispatcher=%q}`, name), func() float64 {
		return float64(queueLen())
	})
	return m
}

func (m *dispatchMetrics) observe(op Op, result string, start time.Time) {
	if c, ok := m.ops[op][result]; ok {
		c.Inc()
	}
	if h, ok := m.exec[op]; ok {
		h.UpdateDuration(start)
	}
}

func (m *dispatchMetrics) count(op Op, result string) uint64 {
	if c, ok := m.ops[op][result]; ok {
		return c.Get()
	}
	return 0
}

// total returns the number of processed envelopes
func (m *dispatchMetrics) total() uint64 {
	var n uint64
	for _, results := range m.ops {
		for _, c := range results {
			n += c.Get()
		}
	}
	return n
}

func (m *dispatchMetrics) write(w io.Writer) {
	m.set.WritePrometheus(w)
}
