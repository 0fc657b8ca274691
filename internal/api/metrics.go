package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/franz/crate/internal/store"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crate_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crate_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crate_search_results",
			Help:    "Number of hits returned per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		},
		[]string{"collection"},
	)

	TracksIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crate_tracks_ingested_total",
			Help: "Total number of new tracks written by ingest batches",
		},
		[]string{"collection"},
	)

	IngestBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crate_ingest_batches_total",
			Help: "Total number of ingest batches that produced a revision",
		},
		[]string{"collection"},
	)
)

// RecordIngest counts an ingest batch against its collection
func RecordIngest(collection string, res *store.IngestResult) {
	if res == nil || res.Revision == store.NoRevision {
		return
	}
	IngestBatches.WithLabelValues(collection).Inc()
	TracksIngested.WithLabelValues(collection).Add(float64(res.TracksAdded))
}

// instrument records request counts and latencies labelled by route pattern
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
