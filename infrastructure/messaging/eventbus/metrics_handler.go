package eventbus

import (
	"context"
	"strings"

	"lifetree-backend/domain/events"
	"lifetree-backend/pkg/observability"
)

// MetricsHandler feeds node and expansion lifecycle events into the
// Prometheus collector.
type MetricsHandler struct {
	metrics *observability.Metrics
}

// NewMetricsHandler creates a new metrics event handler
func NewMetricsHandler(metrics *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{
		metrics: metrics,
	}
}

// CanHandle reports whether the event type is counted
func (h *MetricsHandler) CanHandle(eventType string) bool {
	switch eventType {
	case "node.spawned", "node.removed":
		return true
	}
	return strings.HasPrefix(eventType, "expansion.")
}

// Handle increments the counter matching the event type
func (h *MetricsHandler) Handle(ctx context.Context, event events.DomainEvent) error {
	switch eventType := event.GetEventType(); eventType {
	case "node.spawned":
		h.metrics.NodesSpawned.Inc()
	case "node.removed":
		h.metrics.NodesRemoved.Inc()
	default:
		if outcome, ok := strings.CutPrefix(eventType, "expansion."); ok {
			h.metrics.Expansions.WithLabelValues(outcome).Inc()
		}
	}
	return nil
}
