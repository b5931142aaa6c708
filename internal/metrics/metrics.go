package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding and vector store Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagesearch",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding model calls",
		},
		[]string{"model", "kind", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "imagesearch",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding model call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model", "kind"},
	)

	EmbeddedObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagesearch",
			Name:      "embedded_objects_total",
			Help:      "Total number of objects embedded",
		},
		[]string{"kind"},
	)

	StoreOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagesearch",
			Name:      "store_operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"operation", "status"},
	)

	StorePointsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "imagesearch",
			Name:      "store_points_total",
			Help:      "Total number of points upserted",
		},
	)

	IndexJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagesearch",
			Name:      "index_jobs_total",
			Help:      "Indexing jobs by final status",
		},
		[]string{"status"},
	)

	IndexDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "imagesearch",
			Name:      "index_duplicates_total",
			Help:      "Images skipped by duplicate detection",
		},
	)
)

var registered bool

// Register registers all metrics with the default registry. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddedObjectsTotal,
		StoreOperationsTotal,
		StorePointsTotal,
		IndexJobsTotal,
		IndexDuplicatesTotal,
	)
	registered = true
}

// ObserveStore records the outcome of a store operation
func ObserveStore(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperationsTotal.WithLabelValues(operation, status).Inc()
}
