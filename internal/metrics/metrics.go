package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connections_active",
			Help: "Number of open WebSocket connections",
		},
	)

	UsersOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_users_online",
			Help: "Number of distinct users with at least one open connection",
		},
	)

	EventsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_routed_total",
			Help: "Number of inbound events routed, by event kind",
		},
		[]string{"type"},
	)

	FramesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_frames_dropped_total",
			Help: "Number of inbound frames dropped as malformed or unknown",
		},
	)

	TopicsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_topics_active",
			Help: "Number of topics with at least one subscriber",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		UsersOnline,
		EventsRouted,
		FramesDropped,
		TopicsActive,
	)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
