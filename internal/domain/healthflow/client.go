package healthflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/healthflow/rxguard/internal/domain/clinical"
)

// Client fetches patient context from the HealthFlow registry. All calls go
// through a circuit breaker: when the registry misbehaves, validation keeps
// running on the caller-supplied context instead of queueing on a dead
// upstream.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

func NewClient(baseURL, apiKey string, logger zerolog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:    "healthflow-registry",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}
}

// PatientContext fetches the registry's clinical context for a national id.
func (c *Client) PatientContext(ctx context.Context, nationalID string) (*clinical.PatientContext, error) {
	if nationalID == "" {
		return nil, fmt.Errorf("national id required")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchContext(ctx, nationalID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*clinical.PatientContext), nil
}

func (c *Client) fetchContext(ctx context.Context, nationalID string) (*clinical.PatientContext, error) {
	endpoint := fmt.Sprintf("%s/patients/%s/context", c.baseURL, url.PathEscape(nationalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var pc clinical.PatientContext
	if err := json.NewDecoder(resp.Body).Decode(&pc); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}
	return &pc, nil
}
