package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "respkv"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	commandsTotal     *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	protocolErrors    prometheus.Counter
	rateLimited       prometheus.Counter
}

// NewRegistry creates a registry with the respkv metrics and the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command and status",
		}, []string{"command", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution time",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"command"}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently open client connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted",
		}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Connections closed because of malformed input",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per-IP rate limiter",
		}),
	}

	r.reg.MustRegister(
		r.commandsTotal,
		r.commandDuration,
		r.connectionsActive,
		r.connectionsTotal,
		r.protocolErrors,
		r.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Register adds an extra collector, such as a StoreCollector.
func (r *Registry) Register(c prometheus.Collector) error {
	if r == nil {
		return nil
	}
	return r.reg.Register(c)
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveCommand records one executed command.
func (r *Registry) ObserveCommand(command string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	r.commandsTotal.WithLabelValues(command, status).Inc()
	r.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.connectionsTotal.Inc()
	r.connectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.connectionsActive.Dec()
}

// ProtocolError records a connection closed for malformed input.
func (r *Registry) ProtocolError() {
	if r == nil {
		return
	}
	r.protocolErrors.Inc()
}

// RateLimited records a rejected command.
func (r *Registry) RateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}
