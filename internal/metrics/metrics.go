package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stagetwo/webgate/internal/auth"
	"github.com/stagetwo/webgate/internal/challenge"
)

const namespace = "webgate"

// StatsSource provides the auth gauges.
type StatsSource interface {
	Stats() auth.Stats
}

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	authEvents   *prometheus.CounterVec
	rotations    prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors. The auth gauges are added later by
// RegisterStats, once the auth service exists.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Auth outcomes by kind.",
		}, []string{"kind"}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pin_rotations_total",
			Help:      "PINs issued since start.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.authEvents,
		m.rotations,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RegisterStats adds the gauges read from stats. It fails if gauges are
// already registered.
func (m *Metrics) RegisterStats(stats StatsSource) error {
	if stats == nil {
		return errors.New("metrics: nil stats source")
	}
	for _, g := range []prometheus.Collector{
		gauge("active_sessions", "Live session tokens.", func() float64 {
			return float64(stats.Stats().ActiveSessions)
		}),
		gauge("locked_out_clients", "Clients locked out of the current PIN.", func() float64 {
			return float64(stats.Stats().LockedOutClients)
		}),
		gauge("challenge_generation", "Number of PINs issued.", func() float64 {
			return float64(stats.Stats().ChallengeGen)
		}),
	} {
		if err := m.registry.Register(g); err != nil {
			return fmt.Errorf("registering auth gauges: %w", err)
		}
	}
	return nil
}

func gauge(name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// OnAuthEvent implements auth.Observer.
func (m *Metrics) OnAuthEvent(e auth.Event) {
	m.authEvents.WithLabelValues(string(e.Kind)).Inc()
}

// Present implements challenge.Presenter by counting rotations.
func (m *Metrics) Present(challenge.Challenge) error {
	m.rotations.Inc()
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency. Routes are labelled by
// their chi pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
