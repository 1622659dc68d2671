package persist

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK    = "ok"
	resultError = "error"
	cacheHit    = "hit"
	cacheMiss   = "miss"
)

// Metrics persist 模块的 Prometheus 指标
// nil *Metrics 的所有方法都是空操作
type Metrics struct {
	captures           *prometheus.CounterVec
	spawns             *prometheus.CounterVec
	decodeFailures     *prometheus.CounterVec
	catalogMisses      prometheus.Counter
	placementConflicts prometheus.Counter
	packageCache       *prometheus.CounterVec
}

// NewMetrics 创建并注册指标，reg 为 nil 时使用 prometheus.DefaultRegisterer
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	const subsystem = "persist"

	m := &Metrics{
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "captures_total",
			Help:      "Live entities captured into persistent records.",
		}, []string{"result"}),
		spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "spawns_total",
			Help:      "Live entities restored from persistent records.",
		}, []string{"kind", "result"}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "extension_decode_failures_total",
			Help:      "Typed extension reads that failed to decode.",
		}, []string{"key"}),
		catalogMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "catalog_misses_total",
			Help:      "Item ids that did not resolve in the catalog.",
		}),
		placementConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "placement_conflicts_total",
			Help:      "World placements rejected for an occupied position, type and layer.",
		}),
		packageCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "package_cache_total",
			Help:      "Package metadata cache lookups.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{
		m.captures, m.spawns, m.decodeFailures,
		m.catalogMisses, m.placementConflicts, m.packageCache,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) captured(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.captures.WithLabelValues(resultError).Inc()
		return
	}
	m.captures.WithLabelValues(resultOK).Inc()
}

func (m *Metrics) spawned(kind string, err error) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.spawns.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) decodeFailed(key string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(key).Inc()
}

func (m *Metrics) catalogMissed() {
	if m == nil {
		return
	}
	m.catalogMisses.Inc()
}

func (m *Metrics) placementConflict(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.placementConflicts.Add(float64(n))
}

func (m *Metrics) packageLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.packageCache.WithLabelValues(cacheHit).Inc()
		return
	}
	m.packageCache.WithLabelValues(cacheMiss).Inc()
}
