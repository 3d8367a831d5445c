// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the change bus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Mutations *prometheus.CounterVec
	Clients   prometheus.Gauge
	Events    *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
}

// New registers every collector on a private registry, so several
// instances can coexist in one process (tests).
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_store_mutations_total",
			Help: "Successful document mutations by collection and action.",
		}, []string{"collection", "action"}),
		Clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pos_bus_clients",
			Help: "Connected change bus clients.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_bus_events_total",
			Help: "Events fanned out by the change bus, by kind (update, relay).",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_bus_dropped_total",
			Help: "Messages dropped by the change bus, by reason.",
		}, []string{"reason"}),
	}
	m.registry.MustRegister(
		m.Mutations, m.Clients, m.Events, m.Dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
