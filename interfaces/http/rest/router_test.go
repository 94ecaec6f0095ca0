package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifetree-backend/application/commands"
	"lifetree-backend/application/commands/bus"
	cmdhandlers "lifetree-backend/application/commands/handlers"
	"lifetree-backend/application/queries"
	querybus "lifetree-backend/application/queries/bus"
	queryhandlers "lifetree-backend/application/queries/handlers"
	"lifetree-backend/application/services"
	"lifetree-backend/application/simulation"
	domaincfg "lifetree-backend/domain/config"
	"lifetree-backend/infrastructure/generation"
	"lifetree-backend/infrastructure/persistence/memory"
	"lifetree-backend/interfaces/http/rest"
	"lifetree-backend/interfaces/http/rest/handlers"
	"lifetree-backend/interfaces/http/rest/middleware"
	"lifetree-backend/pkg/auth"
	pkgerrors "lifetree-backend/pkg/errors"
	"lifetree-backend/pkg/observability"
)

type commandFunc func(ctx context.Context, cmd bus.Command) error

func (f commandFunc) Handle(ctx context.Context, cmd bus.Command) error { return f(ctx, cmd) }

type queryFunc func(ctx context.Context, query querybus.Query) (interface{}, error)

func (f queryFunc) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return f(ctx, query)
}

type serverOptions struct {
	metrics    *observability.Metrics
	validator  *auth.TokenValidator
	limiter    *middleware.ExpandLimiter
	ready      func() error
	enableCORS bool
}

// newTestServer wires the REST surface onto a live manager the same way
// the injector does, minus the transports under test elsewhere.
func newTestServer(t *testing.T, opts serverOptions) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	domainCfg := domaincfg.DefaultDomainConfig()
	domainCfg.EnablePortraits = false

	manager := simulation.NewManager(simulation.ManagerDeps{
		Store:        memory.NewSessionStore(),
		Generator:    generation.NewLocalScenarioGenerator(7, 0),
		DomainConfig: domainCfg,
		TickInterval: 5 * time.Millisecond,
		Logger:       logger,
	})
	t.Cleanup(manager.Stop)

	commandBus := bus.NewCommandBus()
	edit := cmdhandlers.NewEditNodeHandler(manager, logger)
	commandBus.Register(commands.EditNodeCommand{}, commandFunc(func(ctx context.Context, cmd bus.Command) error {
		return edit.Handle(ctx, cmd.(commands.EditNodeCommand))
	}))
	move := cmdhandlers.NewMoveNodeHandler(manager, logger)
	commandBus.Register(commands.MoveNodeCommand{}, commandFunc(func(ctx context.Context, cmd bus.Command) error {
		return move.Handle(ctx, cmd.(commands.MoveNodeCommand))
	}))
	reset := cmdhandlers.NewResetSessionHandler(manager, logger)
	commandBus.Register(commands.ResetSessionCommand{}, commandFunc(func(ctx context.Context, cmd bus.Command) error {
		return reset.Handle(ctx, cmd.(commands.ResetSessionCommand))
	}))
	destroy := cmdhandlers.NewDestroySessionHandler(manager, logger)
	commandBus.Register(commands.DestroySessionCommand{}, commandFunc(func(ctx context.Context, cmd bus.Command) error {
		return destroy.Handle(ctx, cmd.(commands.DestroySessionCommand))
	}))

	queryBus := querybus.NewQueryBus()
	stats := queryhandlers.NewGetSessionStatsHandler(manager, services.NewTreeStatsService(logger), logger)
	queryBus.Register(queries.GetSessionStatsQuery{}, queryFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		return stats.Handle(ctx, query.(queries.GetSessionStatsQuery))
	}))
	tree := queries.NewGetTreeHandler(manager)
	queryBus.Register(queries.GetTreeQuery{}, queryFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		return tree.Handle(ctx, query.(queries.GetTreeQuery))
	}))
	node := queries.NewGetNodeHandler(manager)
	queryBus.Register(queries.GetNodeQuery{}, queryFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		return node.Handle(ctx, query.(queries.GetNodeQuery))
	}))
	ancestry := queries.NewGetAncestryHandler(manager)
	queryBus.Register(queries.GetAncestryQuery{}, queryFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		return ancestry.Handle(ctx, query.(queries.GetAncestryQuery))
	}))
	list := queries.NewListSessionsHandler(manager)
	queryBus.Register(queries.ListSessionsQuery{}, queryFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		return list.Handle(ctx, query.(queries.ListSessionsQuery))
	}))

	errs := pkgerrors.NewErrorHandler(logger, false)
	sessions := handlers.NewSessionHandler(
		cmdhandlers.NewCreateSessionOrchestrator(manager, logger),
		commandBus, queryBus, errs, logger,
	)
	nodes := handlers.NewNodeHandler(
		cmdhandlers.NewExpandNodeOrchestrator(manager, logger),
		commandBus, queryBus, errs, logger,
	)

	router := rest.NewRouter(rest.RouterConfig{
		Sessions:      sessions,
		Nodes:         nodes,
		Errors:        errs,
		Logger:        logger,
		Metrics:       opts.metrics,
		AuthValidator: opts.validator,
		ExpandLimiter: opts.limiter,
		Ready:         opts.ready,
		EnableCORS:    opts.enableCORS,
	}).Setup()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON sends a request with an optional raw JSON payload and decodes
// whatever comes back.
func doJSON(t *testing.T, srv *httptest.Server, method, path, payload string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}
	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

// field walks nested JSON objects and fails the test on a missing key.
func field(t *testing.T, m map[string]interface{}, keys ...string) interface{} {
	t.Helper()

	var cur interface{} = m
	for _, k := range keys {
		obj, ok := cur.(map[string]interface{})
		require.True(t, ok, "expected object before key %q", k)
		cur, ok = obj[k]
		require.True(t, ok, "missing key %q", k)
	}
	return cur
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp, envelope := doJSON(t, srv, http.MethodPost, "/api/v2/sessions",
		`{"title":"Now","age_years":22,"location":"Austin"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, ok := field(t, envelope, "data", "session_id").(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func awaitSettled(t *testing.T, srv *httptest.Server, sessionID string) {
	t.Helper()

	require.Eventually(t, func() bool {
		resp, err := srv.Client().Get(srv.URL + "/api/v2/sessions/" + sessionID + "/tree")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var envelope struct {
			Data struct {
				Metadata struct {
					PendingBatches int `json:"pending_batches"`
				} `json:"metadata"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return false
		}
		return envelope.Data.Metadata.PendingBatches == 0
	}, 3*time.Second, 20*time.Millisecond, "expansion batches did not settle")
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	resp, _ := doJSON(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics route only exists when a collector is configured")
}

func TestReadinessFailure(t *testing.T) {
	srv := newTestServer(t, serverOptions{ready: func() error { return errors.New("draining") }})

	resp, _ := doJSON(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	resp, envelope := doJSON(t, srv, http.MethodPost, "/api/v2/sessions",
		`{"title":"Now","age_years":28,"location":"Lisbon"}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, true, envelope["success"])
	assert.NotEmpty(t, field(t, envelope, "data", "session_id"))

	nodes, ok := field(t, envelope, "data", "tree", "nodes").([]interface{})
	require.True(t, ok)
	require.Len(t, nodes, 1)
	root := nodes[0].(map[string]interface{})
	assert.Equal(t, "Now", root["title"])
	assert.Equal(t, float64(28), root["age_years"])
	assert.Equal(t, "Lisbon", root["location"])
}

func TestCreateSession_EmptyBodySeedsDefaults(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	resp, envelope := doJSON(t, srv, http.MethodPost, "/api/v2/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	nodes := field(t, envelope, "data", "tree", "nodes").([]interface{})
	root := nodes[0].(map[string]interface{})
	assert.Equal(t, "Now", root["title"])
	assert.Equal(t, float64(22), root["age_years"])
}

func TestCreateSession_RejectsBadBodies(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title":`},
		{"unknown field", `{"titel":"typo"}`},
		{"age out of range", `{"age_years":300}`},
		{"negative income", `{"monthly_income":-10}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, srv, http.MethodPost, "/api/v2/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	resp, body := doJSON(t, srv, http.MethodGet, "/api/v2/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", field(t, body, "code"))
	assert.Equal(t, true, body["error"])

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/v2/sessions/missing/tree", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExpandFlow(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	sessionID := createSession(t, srv)

	resp, envelope := doJSON(t, srv, http.MethodPost,
		"/api/v2/sessions/"+sessionID+"/nodes/0/expand", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode,
		"expansion answers before generation finishes")
	assert.NotEmpty(t, field(t, envelope, "data", "batch_id"))
	assert.Equal(t, float64(0), field(t, envelope, "data", "parent_id"))

	childIDs, ok := field(t, envelope, "data", "child_ids").([]interface{})
	require.True(t, ok)
	assert.Len(t, childIDs, 3)

	awaitSettled(t, srv, sessionID)

	_, treeBody := doJSON(t, srv, http.MethodGet, "/api/v2/sessions/"+sessionID+"/tree", "")
	assert.Equal(t, float64(4), field(t, treeBody, "data", "metadata", "node_count"))
	assert.Equal(t, float64(3), field(t, treeBody, "data", "metadata", "edge_count"))

	resp, body := doJSON(t, srv, http.MethodPost,
		"/api/v2/sessions/"+sessionID+"/nodes/0/expand", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NODE_ALREADY_EXPANDED", field(t, body, "code"))
}

func TestExpandUnknownNode(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	sessionID := createSession(t, srv)

	resp, body := doJSON(t, srv, http.MethodPost,
		"/api/v2/sessions/"+sessionID+"/nodes/99/expand", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NODE_NOT_FOUND", field(t, body, "code"))
}

func TestNodeIDPathValidation(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	sessionID := createSession(t, srv)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/v2/sessions/"+sessionID+"/nodes/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/v2/sessions/"+sessionID+"/nodes/-1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEditNode(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	sessionID := createSession(t, srv)

	resp, envelope := doJSON(t, srv, http.MethodPatch,
		"/api/v2/sessions/"+sessionID+"/nodes/0", `{"title":"Adjusted","monthly_income":4200}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Adjusted", field(t, envelope, "data", "node", "title"))
	assert.Equal(t, float64(4200), field(t, envelope, "data", "node", "monthly_income"))

	resp, _ = doJSON(t, srv, http.MethodPatch,
		"/api/v2/sessions/"+sessionID+"/nodes/0", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "an edit must change at least one field")

	resp, _ = doJSON(t, srv, http.MethodPatch,
		"/api/v2/sessions/"+sessionID+"/nodes/0", `{"titel":"typo"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodPatch,
		"/api/v2/sessions/"+sessionID+"/nodes/99", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NODE_NOT_FOUND", field(t, body, "code"))
}

func TestMoveNode(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	sessionID := createSession(t, srv)

	resp, body := doJSON(t, srv, http.MethodPut,
		"/api/v2/sessions/"+sessionID+"/nodes/0/position", `{"x":50,"y":50}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ROOT_NODE_PINNED", field(t, body, "code"))

	_, expandBody := doJSON(t, srv, http.MethodPost,
		"/api/v2/sessions/"+sessionID+"/nodes/0/expand", "")
	childIDs := field(t, expandBody, "data", "child_ids").([]interface{})
	require.NotEmpty(t, childIDs)
	awaitSettled(t, srv, sessionID)

	resp, _ = doJSON(t, srv, http.MethodPut,
		"/api/v2/sessions/"+sessionID+"/nodes/1/position", `{"x":120,"y":-260}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDestroySession(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	sessionID := createSession(t, srv)

	resp, _ := doJSON(t, srv, http.MethodDelete, "/api/v2/sessions/"+sessionID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/v2/sessions/"+sessionID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodDelete, "/api/v2/sessions/"+sessionID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListSessionsPagination(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	for i := 0; i < 3; i++ {
		createSession(t, srv)
		time.Sleep(5 * time.Millisecond)
	}

	resp, envelope := doJSON(t, srv, http.MethodGet, "/api/v2/sessions?page_size=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sessions, ok := envelope["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, sessions, 2)
	assert.Equal(t, float64(3), field(t, envelope, "meta", "pagination", "total"))
	assert.Equal(t, float64(2), field(t, envelope, "meta", "pagination", "total_pages"))
	assert.Equal(t, true, field(t, envelope, "meta", "pagination", "has_next"))

	_, envelope = doJSON(t, srv, http.MethodGet, "/api/v2/sessions?page=2&page_size=2", "")
	sessions = envelope["data"].([]interface{})
	assert.Len(t, sessions, 1)
	assert.Equal(t, false, field(t, envelope, "meta", "pagination", "has_next"))
}

func TestAuthenticationGuard(t *testing.T) {
	const secret = "router-test-secret-0123456789abcd"
	validator, err := auth.NewTokenValidator(secret, "lifetree-backend")
	require.NoError(t, err)

	srv := newTestServer(t, serverOptions{validator: validator})

	resp, _ := doJSON(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "operational endpoints stay open")

	resp, body := doJSON(t, srv, http.MethodPost, "/api/v2/sessions", `{"title":"Now"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", field(t, body, "error", "code"))

	issuer, err := auth.NewTokenIssuer(secret, "lifetree-backend", time.Hour)
	require.NoError(t, err)
	token, err := issuer.Issue("user-7", "u7@example.com")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v2/sessions", strings.NewReader(`{"title":"Now"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	authed, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	assert.Equal(t, http.StatusCreated, authed.StatusCode)
}

func TestExpandRateLimit(t *testing.T) {
	limiter := middleware.NewExpandLimiter(1, zap.NewNop())
	t.Cleanup(limiter.Stop)

	srv := newTestServer(t, serverOptions{limiter: limiter})
	sessionID := createSession(t, srv)

	resp, _ := doJSON(t, srv, http.MethodPost,
		"/api/v2/sessions/"+sessionID+"/nodes/0/expand", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodPost,
		"/api/v2/sessions/"+sessionID+"/nodes/0/expand", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.Equal(t, "TOO_MANY_REQUESTS", field(t, body, "error", "code"))

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/v2/sessions/"+sessionID+"/tree", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "reads stay unthrottled")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, serverOptions{enableCORS: true})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v2/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, serverOptions{metrics: observability.NewMetrics("test")})

	resp, _ := doJSON(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)

	raw, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "test_http_requests_total")
}
