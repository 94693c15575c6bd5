package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PublishRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifest_publish_requests_total",
			Help: "Publish requests by outcome",
		},
		[]string{"status"},
	)

	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "manifest_publish_duration_seconds",
			Help:    "Time spent syncing the catalog and writing the manifest",
			Buckets: prometheus.DefBuckets,
		},
	)

	ManifestEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "manifest_events",
			Help: "Number of events in the current manifest",
		},
	)

	TransientReferences = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "manifest_transient_references_total",
			Help: "blob: or data: references received in published events",
		},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "Asset uploads by outcome",
		},
		[]string{"status"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upload_bytes_total",
			Help: "Bytes written to the uploads directory",
		},
	)

	CatalogSync = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_operations_total",
			Help: "Payment catalog operations per event",
		},
		[]string{"action", "result"},
	)

	CheckoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout session creations by outcome",
		},
		[]string{"result"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment webhook deliveries by type and outcome",
		},
		[]string{"type", "result"},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "AI helper requests by kind and outcome",
		},
		[]string{"kind", "result"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by the matched chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
