package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK    = "ok"
	ResultError = "error"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

type hierarchyMetrics struct {
	mutationsTotal   *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
	rebuildRows      prometheus.Counter
	treeCacheTotal   *prometheus.CounterVec
}

var hierarchySingleton = sync.OnceValue(func() *hierarchyMetrics {
	return &hierarchyMetrics{
		mutationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hierarchy",
			Name:      "department_mutations_total",
			Help:      "Total number of department mutations by operation and result.",
		}, []string{"operation", "result"}),
		mutationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hierarchy",
			Name:      "department_mutation_duration_seconds",
			Help:      "Duration of department mutations including the transaction.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		rebuildRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "hierarchy",
			Name:      "rebuild_rows_updated_total",
			Help:      "Total number of department rows rewritten by path rebuilds.",
		}),
		treeCacheTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hierarchy",
			Name:      "tree_cache_requests_total",
			Help:      "Department tree cache lookups by result.",
		}, []string{"result"}),
	}
})

// ObserveMutation records the outcome of one department mutation started at start.
func ObserveMutation(operation string, start time.Time, err error) {
	m := hierarchySingleton()
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.mutationsTotal.WithLabelValues(operation, result).Inc()
	m.mutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func AddRebuildRows(n int) {
	if n > 0 {
		hierarchySingleton().rebuildRows.Add(float64(n))
	}
}

func TreeCacheRequest(result string) {
	hierarchySingleton().treeCacheTotal.WithLabelValues(result).Inc()
}
