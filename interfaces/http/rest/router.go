package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"lifetree-backend/interfaces/http/rest/handlers"
	"lifetree-backend/interfaces/http/rest/middleware"
	"lifetree-backend/pkg/auth"
	pkgerrors "lifetree-backend/pkg/errors"
	"lifetree-backend/pkg/observability"
)

// RouterConfig bundles the dependencies of the HTTP surface. Nil optional
// fields switch the corresponding feature off.
type RouterConfig struct {
	Sessions *handlers.SessionHandler
	Nodes    *handlers.NodeHandler
	Errors   *pkgerrors.ErrorHandler
	Logger   *zap.Logger

	// Optional
	Metrics       *observability.Metrics
	AuthValidator *auth.TokenValidator
	ExpandLimiter *middleware.ExpandLimiter
	StreamHandler http.Handler
	Ready         func() error
	EnableCORS    bool
}

// Router creates and configures the HTTP router
type Router struct {
	cfg RouterConfig
}

// NewRouter creates a new router instance
func NewRouter(cfg RouterConfig) *Router {
	return &Router{cfg: cfg}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.cfg.Logger))
	router.Use(rt.cfg.Errors.Middleware)
	if rt.cfg.Metrics != nil {
		router.Use(middleware.Metrics(rt.cfg.Metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Operational endpoints stay outside the versioned API and its auth.
	router.Get("/healthz", rt.healthCheck)
	router.Get("/readyz", rt.readinessCheck)
	if rt.cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.cfg.Metrics.Handler())
	}

	router.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg.AuthValidator, rt.cfg.Logger))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", rt.cfg.Sessions.CreateSession)
			r.Get("/", rt.cfg.Sessions.ListSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Use(middleware.SessionContext)

				r.Get("/", rt.cfg.Sessions.GetSession)
				r.Delete("/", rt.cfg.Sessions.DestroySession)
				r.Post("/reset", rt.cfg.Sessions.ResetSession)
				r.Get("/tree", rt.cfg.Sessions.GetTree)

				if rt.cfg.StreamHandler != nil {
					r.Handle("/stream", rt.cfg.StreamHandler)
				}

				r.Route("/nodes/{nodeID}", func(r chi.Router) {
					r.Get("/", rt.cfg.Nodes.GetNode)
					r.Patch("/", rt.cfg.Nodes.EditNode)
					r.Get("/ancestry", rt.cfg.Nodes.GetAncestry)
					r.Put("/position", rt.cfg.Nodes.MoveNode)

					if rt.cfg.ExpandLimiter != nil {
						r.With(rt.cfg.ExpandLimiter.Middleware).Post("/expand", rt.cfg.Nodes.ExpandNode)
					} else {
						r.Post("/expand", rt.cfg.Nodes.ExpandNode)
					}
				})
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports whether the session manager is accepting work.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.cfg.Ready != nil {
		if err := rt.cfg.Ready(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not ready"}`))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
