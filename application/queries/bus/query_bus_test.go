package bus_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifetree-backend/application/queries/bus"
)

type countQuery struct {
	invalid bool
}

func (q countQuery) Validate() error {
	if q.invalid {
		return fmt.Errorf("count query is invalid")
	}
	return nil
}

type otherQuery struct{}

func (otherQuery) Validate() error { return nil }

func TestQueryBus_AskReturnsHandlerResult(t *testing.T) {
	b := bus.NewQueryBus()
	require.NoError(t, b.Register(countQuery{}, bus.QueryHandlerFunc(
		func(ctx context.Context, query bus.Query) (interface{}, error) {
			return 42, nil
		})))

	result, err := b.Ask(context.Background(), countQuery{})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestQueryBus_RejectsDuplicateRegistration(t *testing.T) {
	b := bus.NewQueryBus()
	handler := bus.QueryHandlerFunc(func(ctx context.Context, query bus.Query) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, b.Register(countQuery{}, handler))
	assert.Error(t, b.Register(countQuery{}, handler))
}

func TestQueryBus_UnknownQuery(t *testing.T) {
	b := bus.NewQueryBus()

	_, err := b.Ask(context.Background(), otherQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestQueryBus_ValidationShortCircuits(t *testing.T) {
	b := bus.NewQueryBus()
	called := false
	require.NoError(t, b.Register(countQuery{}, bus.QueryHandlerFunc(
		func(ctx context.Context, query bus.Query) (interface{}, error) {
			called = true
			return nil, nil
		})))

	_, err := b.Ask(context.Background(), countQuery{invalid: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.False(t, called)
}

type stubQueryTimer struct {
	stopped bool
}

func (s *stubQueryTimer) Stop() { s.stopped = true }

type stubQueryMetrics struct {
	counts map[string]int
	timer  *stubQueryTimer
}

func (m *stubQueryMetrics) StartTimer(metric, label string) bus.Timer {
	m.timer = &stubQueryTimer{}
	return m.timer
}

func (m *stubQueryMetrics) Increment(metric, label string) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[metric+"/"+label]++
}

func TestMetricsMiddleware_WrapCountsOutcomes(t *testing.T) {
	metrics := &stubQueryMetrics{}
	mw := bus.NewMetricsMiddleware(metrics)

	ok := mw.Wrap(bus.QueryHandlerFunc(func(ctx context.Context, query bus.Query) (interface{}, error) {
		return "tree", nil
	}))
	result, err := ok.Handle(context.Background(), countQuery{})
	require.NoError(t, err)
	assert.Equal(t, "tree", result)
	assert.Equal(t, 1, metrics.counts["query_count/countQuery"])
	assert.Equal(t, 1, metrics.counts["query_success/countQuery"])
	require.NotNil(t, metrics.timer)
	assert.True(t, metrics.timer.stopped)

	failing := mw.Wrap(bus.QueryHandlerFunc(func(ctx context.Context, query bus.Query) (interface{}, error) {
		return nil, errors.New("session gone")
	}))
	_, err = failing.Handle(context.Background(), countQuery{})
	require.Error(t, err)
	assert.Equal(t, 1, metrics.counts["query_errors/countQuery"])
}
