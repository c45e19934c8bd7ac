// Package observability exposes the server counters on a prometheus registry.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "channel_chat"

// Metrics owns its registry, several servers can live in one process (tests).
type Metrics struct {
	registry        *prometheus.Registry
	EventsPublished *prometheus.CounterVec
	SinkFailures    prometheus.Counter
	Requests        *prometheus.CounterVec
	RateLimited     prometheus.Counter
	StreamClients   prometheus.Gauge
	RoomMembers     prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events fanned out to stream subscribers.",
		}, []string{"type"}),
		SinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Events a subscriber failed to consume in time.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "REST requests by route and status.",
		}, []string{"route", "status"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per identity limiter.",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Open websocket connections.",
		}),
		RoomMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_subscriptions",
			Help:      "Room subscriptions across all websocket connections.",
		}),
	}
	m.registry.MustRegister(
		m.EventsPublished,
		m.SinkFailures,
		m.Requests,
		m.RateLimited,
		m.StreamClients,
		m.RoomMembers,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
