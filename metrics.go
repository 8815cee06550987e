// Prometheus instrumentation.
//
// Collectors are always constructed so the store never branches on whether
// metrics are enabled; they are registered only when Config.Registerer is
// set. Every series carries constant "store" and "path" labels, so stores
// of the same name in different environments report separate series. A
// store only unregisters the collectors it registered itself.
package shelf

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	reg        prometheus.Registerer
	owned      []prometheus.Collector
	commits    *prometheus.CounterVec
	documents  prometheus.Gauge
	lookups    *prometheus.CounterVec
	commitTime prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer, store, dir string) (*metrics, error) {
	labels := prometheus.Labels{"store": store, "path": dir}
	m := &metrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "shelf_commits_total",
			Help:        "Commits attempted, by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "shelf_documents",
			Help:        "Documents currently held in memory.",
			ConstLabels: labels,
		}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "shelf_cache_lookups_total",
			Help:        "Single-record lookups, by cache result.",
			ConstLabels: labels,
		}, []string{"result"}),
		commitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "shelf_commit_duration_seconds",
			Help:        "Time spent in successful and failed commits.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		return m, nil
	}
	m.reg = reg
	for i, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				m.adopt(i, are.ExistingCollector)
				continue
			}
			m.unregister()
			return nil, err
		}
		m.owned = append(m.owned, c)
	}
	return m, nil
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.commits, m.documents, m.lookups, m.commitTime}
}

// adopt swaps in a collector already registered for the same data
// directory, so a second handle on it reports to the same series.
func (m *metrics) adopt(i int, c prometheus.Collector) {
	switch i {
	case 0:
		m.commits = c.(*prometheus.CounterVec)
	case 1:
		m.documents = c.(prometheus.Gauge)
	case 2:
		m.lookups = c.(*prometheus.CounterVec)
	case 3:
		m.commitTime = c.(prometheus.Histogram)
	}
}

func (m *metrics) unregister() {
	if m.reg == nil {
		return
	}
	for _, c := range m.owned {
		m.reg.Unregister(c)
	}
	m.owned = nil
	m.reg = nil
}

func (m *metrics) commit(seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commits.WithLabelValues(result).Inc()
	m.commitTime.Observe(seconds)
}

func (m *metrics) lookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(result).Inc()
}
