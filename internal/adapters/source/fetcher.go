// Package source fetches player records from the sportsdata.io API.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/nbalake/internal/domain/lake"
	"github.com/okian/nbalake/pkg/logger"
)

// SubscriptionKeyHeader carries the API key.
const SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// errorBodyLimit caps how much of a failed response is kept for the error.
const errorBodyLimit = 512

// Fetcher performs the single GET against the player endpoint.
type Fetcher struct {
	client   *http.Client
	endpoint string
	apiKey   string
	logger   logger.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the request timeout of the default client. Zero means no
// timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Fetcher for endpoint and apiKey.
func New(endpoint, apiKey string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Named("source")
	}
	return f
}

// Fetch performs one request and returns the records in response order.
// There is no retry; any failure is returned to the caller.
func (f *Fetcher) Fetch(ctx context.Context) ([]lake.Record, error) {
	if strings.TrimSpace(f.endpoint) == "" {
		return nil, ErrEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(SubscriptionKeyHeader, f.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	records, err := lake.DecodeRecords(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	f.logger.Info(ctx, "fetched player data",
		logger.Int("records", len(records)),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}
