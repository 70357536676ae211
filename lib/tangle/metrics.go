package tangle

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/GalRogozinski/tangledb/lib/provider"
	"github.com/VictoriaMetrics/metrics"
)

// tangleMetrics records per-operation counters and latencies in a metrics.Set.
type tangleMetrics struct {
	set *metrics.Set
}

func newTangleMetrics(set *metrics.Set) *tangleMetrics {
	if set == nil {
		set = metrics.NewSet()
	}
	return &tangleMetrics{set: set}
}

// observe counts a finished operation. err may be nil.
func (m *tangleMetrics) observe(op string, start time.Time, err error) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`tangle_operations_total{op=%q}`, op)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`tangle_operation_duration_seconds{op=%q}`, op)).UpdateDuration(start)
	if err != nil {
		m.set.GetOrCreateCounter(fmt.Sprintf(`tangle_errors_total{op=%q,kind=%q}`, op, errorKind(err))).Inc()
	}
}

// hit counts a load answered by the named provider.
func (m *tangleMetrics) hit(name string) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`tangle_load_hits_total{provider=%q}`, name)).Inc()
}

func (m *tangleMetrics) miss() {
	m.set.GetOrCreateCounter(`tangle_load_misses_total`).Inc()
}

func errorKind(err error) string {
	if errors.Is(err, provider.ErrPartialFanOut) {
		return provider.ErrCPartialFanOut.String()
	}
	if c := provider.CodeOf(err); c != 0 {
		return c.String()
	}
	return "Unknown"
}

// Metrics returns the set the tangle records its metrics in.
func (t *Tangle) Metrics() *metrics.Set {
	return t.metrics.set
}

// WriteMetrics writes all metrics of the tangle in Prometheus text format to w.
func (t *Tangle) WriteMetrics(w io.Writer) {
	t.metrics.set.WritePrometheus(w)
}
