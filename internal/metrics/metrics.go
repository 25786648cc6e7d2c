// Package metrics exposes the Prometheus collectors for the core's
// lifecycle events: namespace "wynd", subsystem per feature area, Gauges
// for current state, Counters for cumulative events, Histograms for
// latency distributions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the number of currently live connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wynd",
		Subsystem: "connection",
		Name:      "active",
		Help:      "Current number of active WebSocket connections.",
	})

	// ActiveRooms tracks the number of currently live rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "wynd",
		Subsystem: "room",
		Name:      "active",
		Help:      "Current number of active rooms.",
	})

	// RoomMembers tracks membership count per room.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wynd",
		Subsystem: "room",
		Name:      "members",
		Help:      "Current number of members in each room.",
	}, []string{"room"})

	// FramesTotal counts frames processed by kind and direction.
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wynd",
		Subsystem: "frame",
		Name:      "total",
		Help:      "Total frames processed, labeled by kind and direction.",
	}, []string{"kind", "direction"})

	// CallbackDuration tracks user callback latency by kind.
	CallbackDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wynd",
		Subsystem: "callback",
		Name:      "duration_seconds",
		Help:      "Time spent inside a user callback, labeled by callback kind.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"kind"})

	// SendErrorsTotal counts Handle send failures by kind.
	SendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wynd",
		Subsystem: "send",
		Name:      "errors_total",
		Help:      "Total Handle send failures, labeled by error kind.",
	}, []string{"kind"})

	// BroadcastErrorsTotal counts per-peer failures swallowed during fan-out.
	BroadcastErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wynd",
		Subsystem: "broadcast",
		Name:      "errors_total",
		Help:      "Total per-peer send failures swallowed during broadcast or room fan-out.",
	}, []string{"scope"})

	// CircuitBreakerState tracks the gobreaker state per connection bucket.
	// 0: Closed (healthy), 1: Open (tripped), 2: Half-Open (probing).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wynd",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of a connection's send circuit breaker (0=closed,1=open,2=half-open).",
	}, []string{"connection_id"})
)

// IncConnection increments the active connection gauge.
func IncConnection() { ActiveConnections.Inc() }

// DecConnection decrements the active connection gauge.
func DecConnection() { ActiveConnections.Dec() }
