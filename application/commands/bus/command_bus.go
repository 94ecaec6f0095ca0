// Package bus routes mutation commands to their handlers. The bus itself is
// synchronous; whether a handler blocks (edit, move) or just starts work
// (expand) is the handler's contract, not the bus's.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Command mutates session state. Validate runs before dispatch.
type Command interface {
	Validate() error
}

// CommandHandler executes a single command type.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandHandlerFunc adapts a closure into a CommandHandler.
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler.
func (fn CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return fn(ctx, cmd)
}

// Middleware decorates a handler.
type Middleware func(next CommandHandler) CommandHandler

// CommandBus maps concrete command types to handlers. All registration
// happens at container build time; Send is safe for concurrent use.
type CommandBus struct {
	mu     sync.RWMutex
	byType map[reflect.Type]CommandHandler
}

// NewCommandBus returns an empty bus.
func NewCommandBus() *CommandBus {
	return &CommandBus{byType: make(map[reflect.Type]CommandHandler)}
}

// Register binds a handler to the dynamic type of prototype. Registering a
// type twice is a wiring mistake and fails.
func (cb *CommandBus) Register(prototype Command, handler CommandHandler) error {
	key := reflect.TypeOf(prototype)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if _, taken := cb.byType[key]; taken {
		return fmt.Errorf("handler already registered for command type %s", key.Name())
	}
	cb.byType[key] = handler
	return nil
}

// Send validates the command and hands it to its registered handler.
func (cb *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	cb.mu.RLock()
	handler := cb.byType[reflect.TypeOf(cmd)]
	cb.mu.RUnlock()
	if handler == nil {
		return fmt.Errorf("no handler registered for command type %T", cmd)
	}

	return handler.Handle(ctx, cmd)
}

// Logger is the slice of the structured logger the middleware needs.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Metrics is the slice of the metrics collector the middleware needs. An
// adapter in the container bridges it to the prometheus-backed collector.
type Metrics interface {
	StartTimer(metric, label string) Timer
	Increment(metric, label string)
}

// Timer measures one dispatch.
type Timer interface {
	Stop()
}

// LoggingMiddleware logs each command with its type name and outcome.
func LoggingMiddleware(logger Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			label := commandLabel(cmd)
			logger.Info("Executing command", "type", label)

			if err := next.Handle(ctx, cmd); err != nil {
				logger.Error("Command failed", "type", label, "error", err)
				return err
			}
			logger.Info("Command succeeded", "type", label)
			return nil
		})
	}
}

// ValidationMiddleware re-runs Validate in front of the handler, for
// handlers reachable without going through the bus.
func ValidationMiddleware() Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			if err := cmd.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			return next.Handle(ctx, cmd)
		})
	}
}

// MetricsMiddleware records per-command-type counters and a duration timer.
func MetricsMiddleware(metrics Metrics) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			label := commandLabel(cmd)

			timer := metrics.StartTimer("command_duration", label)
			defer timer.Stop()
			metrics.Increment("command_count", label)

			if err := next.Handle(ctx, cmd); err != nil {
				metrics.Increment("command_errors", label)
				return err
			}
			metrics.Increment("command_success", label)
			return nil
		})
	}
}

// Pipeline is an ordered middleware chain. The first middleware given to
// NewPipeline ends up outermost.
type Pipeline struct {
	chain []Middleware
}

// NewPipeline builds a pipeline from the given middleware, outermost first.
func NewPipeline(chain ...Middleware) *Pipeline {
	return &Pipeline{chain: chain}
}

// Execute wraps handler in the pipeline's middleware.
func (p *Pipeline) Execute(handler CommandHandler) CommandHandler {
	for i := len(p.chain) - 1; i >= 0; i-- {
		handler = p.chain[i](handler)
	}
	return handler
}

func commandLabel(cmd Command) string {
	t := reflect.TypeOf(cmd)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
