// Package di wires the application together. Providers are plain
// constructors composed by Wire; the generated injector lives in
// wire_gen.go.
package di

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/wire"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/commands/bus"
	commands_handlers "lifetree-backend/application/commands/handlers"
	"lifetree-backend/application/ports"
	"lifetree-backend/application/queries"
	querybus "lifetree-backend/application/queries/bus"
	queries_handlers "lifetree-backend/application/queries/handlers"
	"lifetree-backend/application/services"
	"lifetree-backend/application/simulation"
	domaincfg "lifetree-backend/domain/config"
	"lifetree-backend/infrastructure/config"
	"lifetree-backend/infrastructure/generation"
	"lifetree-backend/infrastructure/messaging/eventbus"
	"lifetree-backend/infrastructure/persistence/memory"
	"lifetree-backend/interfaces/http/rest"
	resthandlers "lifetree-backend/interfaces/http/rest/handlers"
	"lifetree-backend/interfaces/http/rest/middleware"
	"lifetree-backend/interfaces/websocket"
	"lifetree-backend/pkg/auth"
	pkgerrors "lifetree-backend/pkg/errors"
	"lifetree-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Manager       *simulation.Manager
	EventBus      ports.EventBus
	CommandBus    *bus.CommandBus
	QueryBus      *querybus.QueryBus
	ErrorHandler  *pkgerrors.ErrorHandler
	ExpandLimiter *middleware.ExpandLimiter
	StreamHub     *websocket.Hub
	Router        http.Handler
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideDomainConfig,
	ProvidePhysicsConfig,
	ProvideSessionStore,
	ProvideEventBus,
	ProvideEventPublisher,
	ProvideScenarioGenerator,
	ProvidePortraitGenerator,
	ProvideManager,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideErrorHandler,
	ProvideTokenValidator,
	ProvideExpandLimiter,
	ProvideStreamHub,
	ProvideStreamServer,
	ProvideRouter,
	services.NewTreeStatsService,
	commands_handlers.NewCreateSessionOrchestrator,
	commands_handlers.NewExpandNodeOrchestrator,
	resthandlers.NewSessionHandler,
	resthandlers.NewNodeHandler,
	wire.Struct(new(Container), "*"),
)

// ProvideLogger creates the logger, honoring the configured level
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Metrics {
	return observability.NewMetrics("lifetree")
}

// ProvideDomainConfig loads the domain rules for the current environment
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	return domaincfg.LoadDomainConfig(cfg.Environment)
}

// ProvidePhysicsConfig loads the physics tuning, preferring the tuning
// file when one is configured
func ProvidePhysicsConfig(cfg *config.Config, logger *zap.Logger) (domaincfg.PhysicsConfig, error) {
	if cfg.TuningFile == "" {
		return domaincfg.DefaultPhysicsConfig(), nil
	}
	tuning, err := config.LoadTuningFile(cfg.TuningFile)
	if err != nil {
		return domaincfg.PhysicsConfig{}, fmt.Errorf("failed to load tuning file: %w", err)
	}
	logger.Info("Physics tuning loaded", zap.String("file", cfg.TuningFile))
	return tuning, nil
}

// ProvideSessionStore creates the in-memory session registry
func ProvideSessionStore() ports.SessionStore {
	return memory.NewSessionStore()
}

// ProvideEventBus creates the in-process event bus with the metrics
// subscriber attached
func ProvideEventBus(metrics *observability.Metrics, logger *zap.Logger) ports.EventBus {
	eventBus := eventbus.NewInMemoryBus(logger)
	eventBus.Subscribe("*", eventbus.NewMetricsHandler(metrics))
	return eventBus
}

// ProvideEventPublisher narrows the bus to the publish half sessions use
func ProvideEventPublisher(eventBus ports.EventBus) ports.EventPublisher {
	return eventBus
}

// ProvideScenarioGenerator selects the HTTP scenario client when an
// endpoint is configured and the deterministic local generator otherwise
func ProvideScenarioGenerator(cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) ports.ScenarioGenerator {
	if cfg.ScenarioEndpoint != "" {
		return generation.NewScenarioClient(generation.ScenarioClientConfig{
			Endpoint: cfg.ScenarioEndpoint,
			Timeout:  cfg.GeneratorTimeout,
		}, metrics, logger)
	}
	return generation.NewLocalScenarioGenerator(cfg.GeneratorSeed, cfg.GeneratorDelay)
}

// ProvidePortraitGenerator selects the HTTP portrait client when an
// endpoint is configured and the local placeholder generator otherwise
func ProvidePortraitGenerator(cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) ports.PortraitGenerator {
	if cfg.PortraitEndpoint != "" {
		return generation.NewPortraitClient(generation.PortraitClientConfig{
			Endpoint: cfg.PortraitEndpoint,
			Timeout:  cfg.GeneratorTimeout,
		}, metrics, logger)
	}
	return generation.NewLocalPortraitGenerator()
}

// ProvideManager creates the session manager and exposes its session
// count as a gauge
func ProvideManager(
	cfg *config.Config,
	store ports.SessionStore,
	generator ports.ScenarioGenerator,
	portraits ports.PortraitGenerator,
	publisher ports.EventPublisher,
	domainCfg *domaincfg.DomainConfig,
	physicsCfg domaincfg.PhysicsConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *simulation.Manager {
	manager := simulation.NewManager(simulation.ManagerDeps{
		Store:        store,
		Generator:    generator,
		Portraits:    portraits,
		Publisher:    publisher,
		DomainConfig: domainCfg,
		PhysicsCfg:   physicsCfg,
		TickInterval: cfg.TickInterval,
		SessionTTL:   cfg.SessionTTL,
		MaxSessions:  cfg.MaxSessions,
		Instruments:  metrics,
		Logger:       logger,
	})
	metrics.RegisterActiveSessions(func() float64 {
		return float64(manager.Count(context.Background()))
	})
	return manager
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers. Every
// handler runs behind the logging and metrics middleware.
func ProvideCommandBus(
	manager *simulation.Manager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()
	pipeline := bus.NewPipeline(
		bus.LoggingMiddleware(&zapLoggerAdapter{logger}),
		bus.MetricsMiddleware(commandMetricsAdapter{metrics}),
	)

	editHandler := commands_handlers.NewEditNodeHandler(manager, logger)
	commandBus.Register(commands.EditNodeCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			editCmd, ok := cmd.(commands.EditNodeCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return editHandler.Handle(ctx, editCmd)
		},
	}))

	moveHandler := commands_handlers.NewMoveNodeHandler(manager, logger)
	commandBus.Register(commands.MoveNodeCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			moveCmd, ok := cmd.(commands.MoveNodeCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return moveHandler.Handle(ctx, moveCmd)
		},
	}))

	resetHandler := commands_handlers.NewResetSessionHandler(manager, logger)
	commandBus.Register(commands.ResetSessionCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			resetCmd, ok := cmd.(commands.ResetSessionCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return resetHandler.Handle(ctx, resetCmd)
		},
	}))

	destroyHandler := commands_handlers.NewDestroySessionHandler(manager, logger)
	commandBus.Register(commands.DestroySessionCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			destroyCmd, ok := cmd.(commands.DestroySessionCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return destroyHandler.Handle(ctx, destroyCmd)
		},
	}))

	return commandBus
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	manager *simulation.Manager,
	stats *services.TreeStatsService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()
	mw := querybus.NewMetricsMiddleware(queryMetricsAdapter{metrics})

	statsHandler := queries_handlers.NewGetSessionStatsHandler(manager, stats, logger)
	queryBus.Register(queries.GetSessionStatsQuery{}, mw.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			statsQuery, ok := query.(queries.GetSessionStatsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return statsHandler.Handle(ctx, statsQuery)
		},
	}))

	treeHandler := queries.NewGetTreeHandler(manager)
	queryBus.Register(queries.GetTreeQuery{}, mw.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			treeQuery, ok := query.(queries.GetTreeQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return treeHandler.Handle(ctx, treeQuery)
		},
	}))

	nodeHandler := queries.NewGetNodeHandler(manager)
	queryBus.Register(queries.GetNodeQuery{}, mw.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			nodeQuery, ok := query.(queries.GetNodeQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return nodeHandler.Handle(ctx, nodeQuery)
		},
	}))

	ancestryHandler := queries.NewGetAncestryHandler(manager)
	queryBus.Register(queries.GetAncestryQuery{}, mw.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			ancestryQuery, ok := query.(queries.GetAncestryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return ancestryHandler.Handle(ctx, ancestryQuery)
		},
	}))

	listHandler := queries.NewListSessionsHandler(manager)
	queryBus.Register(queries.ListSessionsQuery{}, mw.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			listQuery, ok := query.(queries.ListSessionsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return listHandler.Handle(ctx, listQuery)
		},
	}))

	return queryBus
}

// ProvideErrorHandler creates the shared HTTP error handler. Debug output
// is limited to development.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideTokenValidator creates the JWT validator. Authentication is off
// unless enabled in the configuration.
func ProvideTokenValidator(cfg *config.Config) (*auth.TokenValidator, error) {
	if !cfg.EnableAuth {
		return nil, nil
	}
	return auth.NewTokenValidator(cfg.JWTSecret, cfg.JWTIssuer)
}

// ProvideExpandLimiter creates the expansion rate limiter. A zero or
// negative rate disables limiting.
func ProvideExpandLimiter(cfg *config.Config, logger *zap.Logger) *middleware.ExpandLimiter {
	if cfg.ExpandRatePerMinute <= 0 {
		return nil
	}
	return middleware.NewExpandLimiter(cfg.ExpandRatePerMinute, logger)
}

// ProvideStreamHub creates the frame stream hub and exposes its client
// count as a gauge
func ProvideStreamHub(metrics *observability.Metrics, logger *zap.Logger) *websocket.Hub {
	hub := websocket.NewHub(logger)
	metrics.RegisterStreamClients(func() float64 {
		return float64(hub.ClientCount())
	})
	return hub
}

// ProvideStreamServer creates the WebSocket upgrade handler
func ProvideStreamServer(
	hub *websocket.Hub,
	manager *simulation.Manager,
	validator *auth.TokenValidator,
	logger *zap.Logger,
) *websocket.Server {
	return websocket.NewServer(hub, manager, validator, logger)
}

// ProvideRouter assembles the HTTP surface
func ProvideRouter(
	cfg *config.Config,
	sessions *resthandlers.SessionHandler,
	nodes *resthandlers.NodeHandler,
	errs *pkgerrors.ErrorHandler,
	metrics *observability.Metrics,
	validator *auth.TokenValidator,
	limiter *middleware.ExpandLimiter,
	stream *websocket.Server,
	logger *zap.Logger,
) http.Handler {
	routerCfg := rest.RouterConfig{
		Sessions:      sessions,
		Nodes:         nodes,
		Errors:        errs,
		Logger:        logger,
		AuthValidator: validator,
		ExpandLimiter: limiter,
		StreamHandler: stream,
		EnableCORS:    cfg.EnableCORS,
	}
	if cfg.EnableMetrics {
		routerCfg.Metrics = metrics
	}
	return rest.NewRouter(routerCfg).Setup()
}

// zapLoggerAdapter adapts zap.Logger to the bus.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, fieldsToZap(keysAndValues)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, fieldsToZap(keysAndValues)...)
}

func fieldsToZap(keysAndValues []interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, _ := keysAndValues[i].(string)
		zapFields = append(zapFields, zap.Any(key, keysAndValues[i+1]))
	}
	return zapFields
}

// commandMetricsAdapter feeds command bus measurements into Prometheus.
// The two bus packages declare their own Timer interfaces, so each side
// gets its own adapter.
type commandMetricsAdapter struct {
	metrics *observability.Metrics
}

func (a commandMetricsAdapter) StartTimer(metric, label string) bus.Timer {
	return a.metrics.StartTimer(metric, label)
}

func (a commandMetricsAdapter) Increment(metric, label string) {
	a.metrics.Increment(metric, label)
}

// queryMetricsAdapter feeds query bus measurements into Prometheus
type queryMetricsAdapter struct {
	metrics *observability.Metrics
}

func (a queryMetricsAdapter) StartTimer(metric, label string) querybus.Timer {
	return a.metrics.StartTimer(metric, label)
}

func (a queryMetricsAdapter) Increment(metric, label string) {
	a.metrics.Increment(metric, label)
}
