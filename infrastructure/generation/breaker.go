// Package generation provides the scenario and portrait generator
// implementations: HTTP clients guarded by a circuit breaker with retry,
// and deterministic local generators for development and tests.
package generation

import (
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// newBreaker builds a circuit breaker for a generator endpoint. Generation
// is slow and expensive, so the breaker trips early and recovers slowly.
func newBreaker(name string, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}
