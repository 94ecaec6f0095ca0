package integration_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifetree-backend/infrastructure/config"
	"lifetree-backend/infrastructure/di"
)

// apiFixture boots the fully wired application behind a test server, the
// same object graph cmd/api runs in production.
type apiFixture struct {
	container *di.Container
	srv       *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		ServerAddress:       ":0",
		Environment:         "development",
		TickInterval:        5 * time.Millisecond,
		SessionTTL:          time.Minute,
		MaxSessions:         10,
		GeneratorTimeout:    5 * time.Second,
		GeneratorSeed:       7,
		LogLevel:            "error",
		JWTIssuer:           "lifetree-backend",
		ExpandRatePerMinute: 0,
		EnableMetrics:       true,
		EnableCORS:          true,
	}
	require.NoError(t, cfg.Validate())

	container, err := di.InitializeContainer(cfg)
	require.NoError(t, err)
	t.Cleanup(container.Manager.Stop)
	t.Cleanup(container.StreamHub.Close)

	srv := httptest.NewServer(container.Router)
	t.Cleanup(srv.Close)

	return &apiFixture{container: container, srv: srv}
}

func (f *apiFixture) do(t *testing.T, method, path, payload string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != "" {
		body = strings.NewReader(payload)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, body)
	require.NoError(t, err)
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.srv.Client().Do(req)
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

// field walks nested JSON objects and fails the test when a key is absent.
func field(t *testing.T, body map[string]interface{}, keys ...string) interface{} {
	t.Helper()
	var current interface{} = body
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		require.True(t, ok, "expected object at %q, got %T", key, current)
		current, ok = m[key]
		require.True(t, ok, "missing key %q", key)
	}
	return current
}

func (f *apiFixture) createSession(t *testing.T, payload string) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/api/v2/sessions", payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, ok := field(t, body, "data", "session_id").(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

// expandAndSettle starts an expansion and waits for its batch to finish,
// returning the spawned child IDs.
func (f *apiFixture) expandAndSettle(t *testing.T, sessionID string, parentID int) []int {
	t.Helper()

	path := "/api/v2/sessions/" + sessionID + "/nodes/" + strconv.Itoa(parentID) + "/expand"
	resp, body := f.do(t, http.MethodPost, path, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	rawChildren, ok := field(t, body, "data", "child_ids").([]interface{})
	require.True(t, ok)
	children := make([]int, 0, len(rawChildren))
	for _, raw := range rawChildren {
		children = append(children, int(raw.(float64)))
	}

	require.Eventually(t, func() bool {
		resp, err := f.srv.Client().Get(f.srv.URL + "/api/v2/sessions/" + sessionID + "/tree")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var tree struct {
			Data struct {
				Metadata struct {
					PendingBatches int `json:"pending_batches"`
				} `json:"metadata"`
			} `json:"data"`
		}
		if json.NewDecoder(resp.Body).Decode(&tree) != nil {
			return false
		}
		return tree.Data.Metadata.PendingBatches == 0
	}, 3*time.Second, 20*time.Millisecond)

	return children
}

func TestSessionFlowEndToEnd(t *testing.T) {
	fix := newAPIFixture(t)

	sessionID := fix.createSession(t, `{"title":"Now","age_years":22,"location":"Porto"}`)
	base := "/api/v2/sessions/" + sessionID

	children := fix.expandAndSettle(t, sessionID, 0)
	require.Len(t, children, 3)
	grandchildren := fix.expandAndSettle(t, sessionID, children[0])
	require.Len(t, grandchildren, 3)

	resp, body := fix.do(t, http.MethodGet, base+"?include_versions=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(7), field(t, body, "data", "stats", "node_count"))
	assert.Equal(t, float64(0), field(t, body, "data", "stats", "pending_batches"))
	assert.Equal(t, float64(3), field(t, body, "data", "stats", "tree_version"))
	assert.NotEmpty(t, field(t, body, "data", "stats", "tree_checksum"))
	assert.Equal(t, float64(7), field(t, body, "data", "layout", "node_count"))
	assert.Equal(t, float64(6), field(t, body, "data", "layout", "edge_count"))
	assert.Equal(t, float64(3), field(t, body, "data", "layout", "max_depth"))
	assert.Equal(t, float64(5), field(t, body, "data", "layout", "leaf_count"))
	assert.Greater(t, field(t, body, "data", "layout", "min_pair_distance").(float64), 0.0)

	versions, ok := field(t, body, "data", "versions").([]interface{})
	require.True(t, ok)
	require.Len(t, versions, 3)
	assert.Equal(t, "initialized", versions[0].(map[string]interface{})["trigger"])
	assert.Equal(t, "expansion", versions[1].(map[string]interface{})["trigger"])
	assert.Equal(t, float64(7), versions[2].(map[string]interface{})["node_count"])

	grandchild := strconv.Itoa(grandchildren[0])
	resp, body = fix.do(t, http.MethodGet, base+"/nodes/"+grandchild+"/ancestry", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	chain, ok := field(t, body, "data", "chain").([]interface{})
	require.True(t, ok)
	require.Len(t, chain, 3)
	assert.Equal(t, float64(3), field(t, body, "data", "depth"))
	assert.Equal(t, float64(0), chain[0].(map[string]interface{})["id"])
	assert.Equal(t, float64(children[0]), chain[1].(map[string]interface{})["id"])
	assert.Equal(t, float64(grandchildren[0]), chain[2].(map[string]interface{})["id"])

	child := strconv.Itoa(children[1])
	resp, body = fix.do(t, http.MethodPatch, base+"/nodes/"+child, `{"title":"Taking the job abroad"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Taking the job abroad", field(t, body, "data", "node", "title"))

	resp, _ = fix.do(t, http.MethodPut, base+"/nodes/"+child+"/position", `{"x":480,"y":360}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = fix.do(t, http.MethodPost, base+"/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), field(t, body, "data", "metadata", "node_count"))
	nodes, ok := field(t, body, "data", "tree", "nodes").([]interface{})
	require.True(t, ok)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Now", nodes[0].(map[string]interface{})["title"])

	// The version counter survives the reset, so revisions on either side
	// of it stay distinguishable.
	resp, body = fix.do(t, http.MethodGet, base+"?include_versions=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4), field(t, body, "data", "stats", "tree_version"))
	versions, ok = field(t, body, "data", "versions").([]interface{})
	require.True(t, ok)
	require.Len(t, versions, 1)
	assert.Equal(t, "reset", versions[0].(map[string]interface{})["trigger"])

	resp, _ = fix.do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, body = fix.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", field(t, body, "code"))
}

func TestStreamEndToEnd(t *testing.T) {
	fix := newAPIFixture(t)
	sessionID := fix.createSession(t, `{"title":"Now","age_years":30}`)

	url := "ws" + strings.TrimPrefix(fix.srv.URL, "http") + "/api/v2/sessions/" + sessionID + "/stream"
	conn, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	readMessage := func() (string, json.RawMessage) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg.Type, msg.Data
	}

	kind, data := readMessage()
	require.Equal(t, "snapshot", kind)
	var snap struct {
		SessionID string `json:"session_id"`
		Nodes     []struct {
			Title string `json:"title"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, sessionID, snap.SessionID)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, "Now", snap.Nodes[0].Title)

	kind, data = readMessage()
	require.Equal(t, "frame", kind)
	var frame struct {
		SessionID string `json:"session_id"`
		Nodes     []struct {
			ID int `json:"id"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, sessionID, frame.SessionID)
	require.Len(t, frame.Nodes, 1)
}

func TestMetricsExposition(t *testing.T) {
	fix := newAPIFixture(t)
	sessionID := fix.createSession(t, `{"title":"Now"}`)
	fix.expandAndSettle(t, sessionID, 0)

	resp, err := fix.srv.Client().Get(fix.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	exposition := string(raw)

	assert.Contains(t, exposition, "lifetree_http_requests_total")
	assert.Contains(t, exposition, "lifetree_simulation_steps_total")
	assert.Contains(t, exposition, "lifetree_nodes_spawned_total")
	assert.Contains(t, exposition, "lifetree_expansions_total")
	assert.Contains(t, exposition, "active_sessions")
}
