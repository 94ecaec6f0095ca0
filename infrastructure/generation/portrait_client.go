package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"lifetree-backend/application/ports"
	"lifetree-backend/pkg/observability"
)

// PortraitClientConfig holds the portrait endpoint settings
type PortraitClientConfig struct {
	Endpoint string
	Timeout  time.Duration
	MaxTries uint
}

// PortraitClient calls an external portrait rendering service and returns
// a URL for the finished image.
type PortraitClient struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	metrics  *observability.Metrics
	logger   *zap.Logger
	maxTries uint
}

// NewPortraitClient creates a new portrait rendering client
func NewPortraitClient(cfg PortraitClientConfig, metrics *observability.Metrics, logger *zap.Logger) *PortraitClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}

	return &PortraitClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  newBreaker("portrait-generator", logger),
		metrics:  metrics,
		logger:   logger,
		maxTries: cfg.MaxTries,
	}
}

type portraitWireRequest struct {
	SessionID  string                 `json:"session_id"`
	NodeID     int                    `json:"node_id"`
	Appearance ports.AppearanceRecord `json:"appearance"`
	AgeYears   int                    `json:"age_years"`
	Scenario   ports.ScenarioRecord   `json:"scenario"`
}

type portraitWireResponse struct {
	URL string `json:"url"`
}

// GeneratePortrait renders a portrait for one node
func (c *PortraitClient) GeneratePortrait(ctx context.Context, req ports.PortraitRequest) (string, error) {
	payload, err := json.Marshal(portraitWireRequest{
		SessionID:  req.SessionID,
		NodeID:     req.NodeID,
		Appearance: req.Appearance,
		AgeYears:   req.AgeYears,
		Scenario:   req.Scenario,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode portrait request: %w", err)
	}

	operation := func() (string, error) {
		return c.requestPortrait(ctx, payload)
	}

	url, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		c.metrics.RecordGeneratorRequest("portrait", "error")
		return "", err
	}

	c.metrics.RecordGeneratorRequest("portrait", "success")
	return url, nil
}

// requestPortrait performs one guarded POST to the portrait endpoint.
func (c *PortraitClient) requestPortrait(ctx context.Context, payload []byte) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &statusError{code: resp.StatusCode, body: string(body)}
		}

		var decoded portraitWireResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode portrait response: %w", err)
		}
		if decoded.URL == "" {
			return nil, fmt.Errorf("portrait service returned an empty url")
		}
		return decoded.URL, nil
	})
	if err != nil {
		return "", classifyRetry(err)
	}
	return result.(string), nil
}
