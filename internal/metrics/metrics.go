package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "abastech",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"method", "path", "status"},
	)

	syncRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "abastech",
			Name:      "sync_rows_total",
			Help:      "Import reconciliation row outcomes.",
		},
		[]string{"result"},
	)

	pushOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "abastech",
			Name:      "push_total",
			Help:      "Sheet push operations by type and result.",
		},
		[]string{"op", "result"},
	)

	pendingDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "abastech",
			Name:      "pending_queue_depth",
			Help:      "Records waiting in the offline queue.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, syncRows, pushOps, pendingDepth)
	})
}

// IncHTTP increments the request counter for one served request.
func IncHTTP(method, path, status string) {
	httpRequests.WithLabelValues(method, path, status).Inc()
}

// AddSyncRows records row outcomes of one import pass.
func AddSyncRows(result string, n int) {
	if n > 0 {
		syncRows.WithLabelValues(result).Add(float64(n))
	}
}

// IncPush records one sheet push attempt.
func IncPush(op, result string) {
	pushOps.WithLabelValues(op, result).Inc()
}

// SetPendingDepth updates the offline queue depth gauge.
func SetPendingDepth(n int) {
	pendingDepth.Set(float64(n))
}
