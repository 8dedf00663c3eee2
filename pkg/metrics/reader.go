package metrics

import "github.com/prometheus/client_golang/prometheus"

// Read paths used when a mapping window cannot be created.
const (
	FallbackWindow = "small_window"
	FallbackPread  = "pread"
)

// ReaderMetrics records flat-file reader activity.
type ReaderMetrics struct {
	rowCache    *prometheus.CounterVec
	indexedRows prometheus.Gauge
	fallbacks   *prometheus.CounterVec
}

// NewReaderMetrics creates and registers the reader collectors. Readers
// sharing a registerer share the series. A nil registerer returns nil.
func NewReaderMetrics(reg prometheus.Registerer) *ReaderMetrics {
	if reg == nil {
		return nil
	}

	return &ReaderMetrics{
		rowCache: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reader",
				Name:      "row_cache_total",
				Help:      "Row cache lookups, by result (hit or miss)",
			},
			[]string{"result"},
		)),
		indexedRows: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "indexed_rows",
			Help:      "Rows whose byte offset is known",
		})),
		fallbacks: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reader",
				Name:      "map_fallbacks_total",
				Help:      "Reads that could not use the primary mapping window, by path",
			},
			[]string{"path"},
		)),
	}
}

// ObserveRowCache records a row cache lookup.
func (m *ReaderMetrics) ObserveRowCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.rowCache.WithLabelValues("hit").Inc()
	} else {
		m.rowCache.WithLabelValues("miss").Inc()
	}
}

// SetIndexedRows sets the indexed row gauge.
func (m *ReaderMetrics) SetIndexedRows(n int) {
	if m == nil {
		return
	}
	m.indexedRows.Set(float64(n))
}

// ObserveFallback records a read served by a fallback path.
func (m *ReaderMetrics) ObserveFallback(path string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(path).Inc()
}
