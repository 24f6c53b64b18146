// Package classificaai provides a client for the ClassificaAI platform
// API, used to surface fiscal metrics and alerts alongside local
// coverage data.
package classificaai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/mapalei/fiscal-cli/internal/resilience"
)

// Client defines the ClassificaAI platform operations.
type Client interface {
	// FiscalMetrics returns the platform-wide fiscal classification metrics.
	FiscalMetrics(ctx context.Context) (*FiscalMetrics, error)
	// FiscalAlerts returns currently open fiscal alerts.
	FiscalAlerts(ctx context.Context) ([]Alert, error)
}

// FiscalMetrics is the platform metrics payload.
type FiscalMetrics struct {
	ProductsClassified int     `json:"products_classified"`
	RulesActive        int     `json:"rules_active"`
	AvgConfidence      float64 `json:"avg_confidence"`
	PendingReview      int     `json:"pending_review"`
}

// Alert is one open fiscal alert on the platform.
type Alert struct {
	ID        string    `json:"id"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	LeafID    string    `json:"leaf_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a ClassificaAI API client.
func NewClient(apiKey, baseURL string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) FiscalMetrics(ctx context.Context) (*FiscalMetrics, error) {
	var out FiscalMetrics
	if err := c.get(ctx, "/api/fiscal/metrics", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) FiscalAlerts(ctx context.Context) ([]Alert, error) {
	var out struct {
		Alerts []Alert `json:"alerts"`
	}
	if err := c.get(ctx, "/api/fiscal/alerts", &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	_, err := resilience.DoVal(ctx, resilience.RetryConfig{Operation: "classificaai" + path}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.getOnce(ctx, path, out)
	})
	return err
}

func (c *httpClient) getOnce(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "classificaai: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrapf(err, "classificaai: build request %s", path)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "classificaai: request %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := eris.New(fmt.Sprintf("classificaai: %s returned %d: %s", path, resp.StatusCode, string(body)))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return eris.Wrapf(err, "classificaai: decode %s response", path)
	}
	return nil
}
