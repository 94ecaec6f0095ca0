// Package bus routes read-model queries to their handlers. Queries never
// mutate a session; handlers answer from deep-copied snapshots, so the bus
// needs no ordering guarantees beyond what each session loop provides.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Query is a read request against one or more sessions. Validate runs
// before dispatch and rejects the request without touching a handler.
type Query interface {
	Validate() error
}

// QueryHandler answers a single query type.
type QueryHandler interface {
	Handle(ctx context.Context, query Query) (interface{}, error)
}

// QueryHandlerFunc adapts a closure into a QueryHandler.
type QueryHandlerFunc func(ctx context.Context, query Query) (interface{}, error)

// Handle implements QueryHandler.
func (fn QueryHandlerFunc) Handle(ctx context.Context, query Query) (interface{}, error) {
	return fn(ctx, query)
}

// QueryBus maps concrete query types to handlers. Registration happens at
// container build time; Ask is safe for concurrent use afterwards.
type QueryBus struct {
	mu     sync.RWMutex
	byType map[reflect.Type]QueryHandler
}

// NewQueryBus returns an empty bus.
func NewQueryBus() *QueryBus {
	return &QueryBus{byType: make(map[reflect.Type]QueryHandler)}
}

// Register binds a handler to the dynamic type of prototype. A second
// registration for the same type is a wiring mistake and fails.
func (qb *QueryBus) Register(prototype Query, handler QueryHandler) error {
	key := reflect.TypeOf(prototype)

	qb.mu.Lock()
	defer qb.mu.Unlock()
	if _, taken := qb.byType[key]; taken {
		return fmt.Errorf("handler already registered for query type %s", key.Name())
	}
	qb.byType[key] = handler
	return nil
}

// Ask validates the query, resolves its handler, and returns the handler's
// result untouched.
func (qb *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("query validation failed: %w", err)
	}

	qb.mu.RLock()
	handler := qb.byType[reflect.TypeOf(query)]
	qb.mu.RUnlock()
	if handler == nil {
		return nil, fmt.Errorf("no handler registered for query type %T", query)
	}

	return handler.Handle(ctx, query)
}

// Metrics is the slice of the metrics collector the bus needs. An adapter
// in the container bridges it to the prometheus-backed implementation.
type Metrics interface {
	StartTimer(metric, label string) Timer
	Increment(metric, label string)
}

// Timer measures one dispatch.
type Timer interface {
	Stop()
}

// MetricsMiddleware instruments handlers with per-query-type counters and
// a duration timer.
type MetricsMiddleware struct {
	metrics Metrics
}

// NewMetricsMiddleware wraps the given collector.
func NewMetricsMiddleware(metrics Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: metrics}
}

// Wrap decorates next with instrumentation, labeled by query type name.
func (mw *MetricsMiddleware) Wrap(next QueryHandler) QueryHandler {
	return QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		label := queryLabel(query)

		timer := mw.metrics.StartTimer("query_duration", label)
		defer timer.Stop()
		mw.metrics.Increment("query_count", label)

		result, err := next.Handle(ctx, query)
		if err != nil {
			mw.metrics.Increment("query_errors", label)
			return nil, err
		}
		mw.metrics.Increment("query_success", label)
		return result, nil
	})
}

func queryLabel(query Query) string {
	t := reflect.TypeOf(query)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
