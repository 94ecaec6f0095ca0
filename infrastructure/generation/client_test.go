package generation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifetree-backend/application/ports"
	"lifetree-backend/infrastructure/generation"
	"lifetree-backend/pkg/observability"
)

type wireRequest struct {
	Ancestry []ports.ScenarioRecord `json:"ancestry"`
	Count    int                    `json:"count"`
}

func scenarioBatch(titles ...string) map[string]interface{} {
	records := make([]ports.ScenarioRecord, 0, len(titles))
	for _, title := range titles {
		records = append(records, ports.ScenarioRecord{
			Title:    title,
			AgeYears: 24,
		})
	}
	return map[string]interface{}{"records": records}
}

func newScenarioClient(endpoint string, maxTries uint) *generation.ScenarioClient {
	return generation.NewScenarioClient(
		generation.ScenarioClientConfig{Endpoint: endpoint, MaxTries: maxTries},
		observability.NewMetrics("test"),
		zap.NewNop(),
	)
}

func TestScenarioClient_EmitsRecordsInResponseOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req wireRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Count)
		require.Len(t, req.Ancestry, 1)
		assert.Equal(t, "Now", req.Ancestry[0].Title)

		json.NewEncoder(w).Encode(scenarioBatch("first", "second", "third"))
	}))
	defer server.Close()

	client := newScenarioClient(server.URL, 1)

	var got []string
	err := client.Generate(context.Background(), []ports.ScenarioRecord{{Title: "Now", AgeYears: 22}}, 3,
		func(rec ports.ScenarioRecord) {
			got = append(got, rec.Title)
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestScenarioClient_RetriesTransientFailures(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(scenarioBatch("a", "b", "c"))
	}))
	defer server.Close()

	client := newScenarioClient(server.URL, 3)

	emitted := 0
	err := client.Generate(context.Background(), []ports.ScenarioRecord{{Title: "Now"}}, 3,
		func(ports.ScenarioRecord) { emitted++ })

	require.NoError(t, err)
	assert.Equal(t, 3, emitted)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestScenarioClient_ClientErrorSkipsRetry(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		http.Error(w, "bad ancestry", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newScenarioClient(server.URL, 3)

	err := client.Generate(context.Background(), []ports.ScenarioRecord{{Title: "Now"}}, 3,
		func(ports.ScenarioRecord) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "a 400 cannot heal, so no retry")
}

func TestScenarioClient_ShortBatchFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scenarioBatch("only one"))
	}))
	defer server.Close()

	client := newScenarioClient(server.URL, 1)

	emitted := 0
	err := client.Generate(context.Background(), []ports.ScenarioRecord{{Title: "Now"}}, 3,
		func(ports.ScenarioRecord) { emitted++ })

	require.Error(t, err)
	assert.Zero(t, emitted, "a short batch must emit nothing")
}

func TestScenarioClient_ExtraRecordsTrimmed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(scenarioBatch("a", "b", "c", "d", "e"))
	}))
	defer server.Close()

	client := newScenarioClient(server.URL, 1)

	var got []string
	err := client.Generate(context.Background(), []ports.ScenarioRecord{{Title: "Now"}}, 3,
		func(rec ports.ScenarioRecord) { got = append(got, rec.Title) })

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestScenarioClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newScenarioClient(server.URL, 3)
	ancestry := []ports.ScenarioRecord{{Title: "Now"}}

	require.Error(t, client.Generate(context.Background(), ancestry, 3, func(ports.ScenarioRecord) {}))
	require.Error(t, client.Generate(context.Background(), ancestry, 3, func(ports.ScenarioRecord) {}))

	err := client.Generate(context.Background(), ancestry, 3, func(ports.ScenarioRecord) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.LessOrEqual(t, atomic.LoadInt64(&calls), int64(6), "open breaker must stop traffic reaching the service")
}

func TestPortraitClient_ReturnsURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req["session_id"])

		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example.com/p/42.png"})
	}))
	defer server.Close()

	client := generation.NewPortraitClient(
		generation.PortraitClientConfig{Endpoint: server.URL, MaxTries: 1},
		observability.NewMetrics("test"),
		zap.NewNop(),
	)

	url, err := client.GeneratePortrait(context.Background(), ports.PortraitRequest{
		SessionID: "sess-1",
		NodeID:    4,
		AgeYears:  25,
		Scenario:  ports.ScenarioRecord{Title: "Moves abroad"},
	})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p/42.png", url)
}

func TestPortraitClient_RejectsEmptyURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"url": ""})
	}))
	defer server.Close()

	client := generation.NewPortraitClient(
		generation.PortraitClientConfig{Endpoint: server.URL, MaxTries: 1},
		observability.NewMetrics("test"),
		zap.NewNop(),
	)

	_, err := client.GeneratePortrait(context.Background(), ports.PortraitRequest{SessionID: "s", NodeID: 1})
	assert.Error(t, err)
}
