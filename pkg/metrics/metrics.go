package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveRooms - live rooms held by the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_active_rooms",
		Help: "Number of rooms currently held by the registry.",
	})

	// OpenConnections - websocket connections currently served.
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_open_connections",
		Help: "Number of open websocket connections.",
	})

	// MovesTotal - accepted moves across all rooms.
	MovesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_moves_total",
		Help: "Total accepted moves.",
	})

	// RejectedEventsTotal - inbound events rejected with a client error.
	RejectedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_rejected_events_total",
		Help: "Total inbound events rejected and reported to the sender.",
	})
)

// Handler exposes Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
