// Package breaker wraps a connection's outbound send path in a
// per-connection circuit breaker: once a peer's socket starts failing, a
// broadcast or room fan-out that touches hundreds of members stops paying
// the cost of repeatedly attempting a write that will fail, without
// changing the SendError the caller ultimately observes.
package breaker

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/wyndhq/wynd/internal/metrics"
)

// New returns a circuit breaker scoped to a single connection's send half.
// It trips after 3 consecutive failures and probes again after 2 seconds,
// deliberately short since a tripped connection is expected to be torn
// down by its own Runtime on the next failed read shortly after.
func New(connectionID string) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        "wynd-send-" + connectionID,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			var v float64
			switch to {
			case gobreaker.StateClosed:
				v = 0
			case gobreaker.StateOpen:
				v = 1
			case gobreaker.StateHalfOpen:
				v = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(connectionID).Set(v)
		},
	}
	return gobreaker.NewCircuitBreaker(settings)
}
