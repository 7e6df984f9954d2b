// Package analytics is the HTTP client for the portfolio analytics service,
// the external collaborator that owns the snapshot read model. A failed
// fetch is reported as an error; callers treat the snapshot as absent and
// degrade, they never crash the session.
package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/quantalpha/advisor-cli/internal/model"
	"github.com/quantalpha/advisor-cli/internal/resilience"
)

// Fetcher returns the current portfolio snapshot.
type Fetcher interface {
	Snapshot(ctx context.Context) (*model.PortfolioSnapshot, error)
}

// Options configures the analytics client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond throttles calls to the analytics service; the
	// snapshot endpoint recomputes metrics per request. Default: 5.
	RequestsPerSecond float64
	Retry             resilience.RetryConfig
	Circuit           resilience.CircuitBreakerConfig
}

// Client fetches snapshots over HTTP with retry, client-side throttling, and
// a circuit breaker so a dead analytics service is not re-fetched on every
// chat turn.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// New creates an analytics client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL: opts.BaseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   opts.Retry,
		breaker: resilience.NewCircuitBreaker(opts.Circuit),
	}
}

// Snapshot fetches the current portfolio snapshot. Transient upstream
// failures are retried with backoff; anything else surfaces immediately.
// Once the breaker opens, fetches fail fast until the service recovers.
func (c *Client) Snapshot(ctx context.Context) (*model.PortfolioSnapshot, error) {
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*model.PortfolioSnapshot, error) {
		return resilience.Do(ctx, c.retry, "analytics.snapshot", c.fetch)
	})
}

func (c *Client) fetch(ctx context.Context) (*model.PortfolioSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "analytics: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/portfolio", nil)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: fetch snapshot")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := eris.Errorf("analytics: snapshot returned %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var snapshot model.PortfolioSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, eris.Wrap(err, "analytics: decode snapshot")
	}
	return &snapshot, nil
}
