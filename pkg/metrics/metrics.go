// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncroom_commands_applied_total",
		Help: "Playback commands accepted by the arbiter and broadcast.",
	}, []string{"kind"})

	CommandsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "syncroom_commands_dropped_total",
		Help: "Playback commands silently dropped.",
	}, []string{"reason"})

	Resyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "syncroom_resyncs_total",
		Help: "Drift corrections sent to individual members.",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "syncroom_rooms_active",
		Help: "Rooms currently holding at least one member.",
	})

	ConnectedMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "syncroom_members_connected",
		Help: "Members currently joined to any room.",
	})
)

// Drop reasons.
const (
	DropDebounced = "debounced"
	DropMalformed = "malformed"
	DropNoRoom    = "no_room"
)

// Handler serves the default registry, mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
