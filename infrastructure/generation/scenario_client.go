package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

const defaultMaxTries = 3

// ScenarioClientConfig holds the scenario endpoint settings
type ScenarioClientConfig struct {
	Endpoint string
	Timeout  time.Duration
	MaxTries uint
}

// ScenarioClient calls an external scenario generation service. One POST
// yields the whole batch; records are emitted in response order so slot
// assignment downstream matches what the service produced.
type ScenarioClient struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	metrics  *observability.Metrics
	logger   *zap.Logger
	maxTries uint
}

// NewScenarioClient creates a new scenario generation client
func NewScenarioClient(cfg ScenarioClientConfig, metrics *observability.Metrics, logger *zap.Logger) *ScenarioClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = defaultMaxTries
	}

	return &ScenarioClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		breaker:  newBreaker("scenario-generator", logger),
		metrics:  metrics,
		logger:   logger,
		maxTries: cfg.MaxTries,
	}
}

type generateRequest struct {
	Ancestry []ports.ScenarioRecord `json:"ancestry"`
	Count    int                    `json:"count"`
}

type generateResponse struct {
	Records []ports.ScenarioRecord `json:"records"`
}

// Generate requests count follow-up scenarios for the given ancestry and
// emits them in arrival order.
func (c *ScenarioClient) Generate(ctx context.Context, ancestry []ports.ScenarioRecord, count int, emit func(ports.ScenarioRecord)) error {
	payload, err := json.Marshal(generateRequest{Ancestry: ancestry, Count: count})
	if err != nil {
		return fmt.Errorf("failed to encode generation request: %w", err)
	}

	operation := func() ([]ports.ScenarioRecord, error) {
		return c.requestRecords(ctx, payload)
	}

	records, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("Scenario request failed, retrying",
				zap.Duration("next_attempt_in", next),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		c.metrics.RecordGeneratorRequest("scenario", "error")
		return err
	}

	if len(records) < count {
		c.metrics.RecordGeneratorRequest("scenario", "short")
		return fmt.Errorf("scenario service returned %d records, want %d", len(records), count)
	}
	if len(records) > count {
		c.logger.Warn("Scenario service returned extra records",
			zap.Int("want", count),
			zap.Int("got", len(records)),
		)
		records = records[:count]
	}

	for _, record := range records {
		emit(record)
	}
	c.metrics.RecordGeneratorRequest("scenario", "success")
	return nil
}

// requestRecords performs one guarded POST to the scenario endpoint.
func (c *ScenarioClient) requestRecords(ctx context.Context, payload []byte) ([]ports.ScenarioRecord, error) {
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

		var decoded generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode scenario response: %w", err)
		}
		return decoded.Records, nil
	})
	if err != nil {
		return nil, classifyRetry(err)
	}
	return result.([]ports.ScenarioRecord), nil
}

// statusError carries a non-200 response for retry classification.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("generator service returned %d: %s", e.code, e.body)
}

// classifyRetry marks errors that cannot heal within one retry cycle as
// permanent: an open breaker, and 4xx responses to a fixed payload.
func classifyRetry(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return backoff.Permanent(err)
	}
	var se *statusError
	if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
		return backoff.Permanent(err)
	}
	return err
}
