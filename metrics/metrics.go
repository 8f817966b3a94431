// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	PollerTicks = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "strikebot_poller_ticks_total",
		Help: "Poller iterations by poller name.",
	}, []string{"poller"})

	PollerRows = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "strikebot_poller_rows_total",
		Help: "Due rows handled by pollers, by outcome.",
	}, []string{"poller", "result"})

	Strikes = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "strikebot_strikes_total",
		Help: "Strikes applied, by punishment.",
	}, []string{"punishment"})

	Giveaways = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "strikebot_giveaway_transitions_total",
		Help: "Giveaway state transitions.",
	}, []string{"transition"})

	CounterFetches = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "strikebot_counter_fetches_total",
		Help: "Follower counter fetches, by kind and result.",
	}, []string{"kind", "result"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
