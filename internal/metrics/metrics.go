// Package metrics exposes Prometheus instrumentation for the adapter.
//
//	tv4play_fetch_total{class,result}          upstream document lookups by cache outcome
//	tv4play_upstream_duration_seconds{status}   time spent on network fetches
//	tv4play_http_requests_total{route,status}   host-facing requests
//	tv4play_menu_items_total{action}            entries emitted per navigation level
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results.
const (
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultRevalidated = "revalidated"
	ResultUnchanged   = "unchanged"
	ResultError       = "error"
)

// Fetches counts document lookups by TTL class and cache outcome.
var Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tv4play_fetch_total",
	Help: "Upstream document lookups by TTL class and cache result.",
}, []string{"class", "result"})

// UpstreamDuration tracks network round trips to the broadcaster.
var UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "tv4play_upstream_duration_seconds",
	Help:    "Upstream request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"status"})

// HTTPRequests counts host-facing requests by route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tv4play_http_requests_total",
	Help: "Host-facing HTTP requests handled.",
}, []string{"route", "status"})

// MenuItems counts entries emitted per navigation action.
var MenuItems = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tv4play_menu_items_total",
	Help: "Menu entries emitted per navigation action.",
}, []string{"action"})

// ObserveUpstream records one network round trip. status 0 means transport error.
func ObserveUpstream(status int, start time.Time) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

// Handler serves the default registry for GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
