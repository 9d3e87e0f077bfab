package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check-in outcomes.
const (
	CheckInRecorded  = "recorded"
	CheckInDuplicate = "duplicate"
	CheckInRejected  = "rejected"
)

type Metrics struct {
	// Request volume by route, method and status code.
	RequestsTotal *prometheus.CounterVec
	// Handler duration by route and method.
	RequestDurationSeconds *prometheus.HistogramVec
	ActiveRequests         prometheus.Gauge
	CheckInsTotal          *prometheus.CounterVec
	RateLimitDroppedTotal  *prometheus.CounterVec
	EventsPublishedTotal   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackify_requests_total",
			Help: "Total number of API requests handled.",
		}, []string{"route", "method", "code"}),
		RequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trackify_request_duration_seconds",
			Help:    "Handler duration for API requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),
		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trackify_active_requests",
			Help: "Current number of in-flight requests.",
		}),
		CheckInsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackify_checkins_total",
			Help: "Check-in attempts by outcome.",
		}, []string{"result"}),
		RateLimitDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackify_rate_limit_dropped_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		EventsPublishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trackify_events_published_total",
			Help: "Live events queued to websocket clients.",
		}, []string{"type"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSeconds,
		m.ActiveRequests,
		m.CheckInsTotal,
		m.RateLimitDroppedTotal,
		m.EventsPublishedTotal,
	)
	return m
}

// WatchClients exposes the live websocket client count.
func (m *Metrics) WatchClients(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "trackify_websocket_clients",
		Help: "Connected websocket clients.",
	}, func() float64 { return float64(count()) }))
}

// Instrument wraps h so requests are counted and timed under route.
func (m *Metrics) Instrument(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	h = promhttp.InstrumentHandlerDuration(m.RequestDurationSeconds.MustCurryWith(labels), h)
	h = promhttp.InstrumentHandlerCounter(m.RequestsTotal.MustCurryWith(labels), h)
	return promhttp.InstrumentHandlerInFlight(m.ActiveRequests, h)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
