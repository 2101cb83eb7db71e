package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/risterz/pantrypal-ai/pkg/enhancer"
)

// Metrics holds the enhancement counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	points   *prometheus.HistogramVec
	cleaner  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantrypal_enhance_requests_total",
			Help: "Enhancement invocations by site and error kind.",
		}, []string{"site", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pantrypal_enhance_duration_seconds",
			Help:    "Time to fetch and process one recipe page.",
			Buckets: prometheus.DefBuckets,
		}, []string{"site"}),
		points: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pantrypal_enhance_points",
			Help:    "Enhancement points returned per page.",
			Buckets: []float64{0, 1, 3, 5, 10, 15},
		}, []string{"site"}),
		cleaner: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pantrypal_cleaner_results_total",
			Help: "Cleaner calls by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.points, m.cleaner)
	return m
}

// Observe records one completed invocation. It fits enhancer.ServiceConfig.Observe.
func (m *Metrics) Observe(out enhancer.Outcome) {
	site := string(out.Site)
	kind := string(enhancer.Classify(out.Err))
	if kind == "" {
		kind = "ok"
	}

	m.requests.WithLabelValues(site, kind).Inc()
	m.duration.WithLabelValues(site).Observe(out.Elapsed.Seconds())
	if out.Err == nil {
		m.points.WithLabelValues(site).Observe(float64(len(out.Points)))
	}

	switch {
	case out.Cleaned:
		m.cleaner.WithLabelValues("cleaned").Inc()
	case out.CleanErr != nil:
		m.cleaner.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
