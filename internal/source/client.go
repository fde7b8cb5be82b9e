// Package source loads election result tables from a local file or an HTTP(S) URL.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rewired-gh/electcast/internal/dataset"
	"github.com/rewired-gh/electcast/internal/logger"
)

// ErrTooLarge is returned when a table exceeds the configured size limit.
var ErrTooLarge = errors.New("dataset exceeds size limit")

// ClientConfig holds retry and size settings for fetching datasets
type ClientConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	MaxBytes     int64
	MaxRecords   int
}

// Client fetches and parses datasets
type Client struct {
	httpClient *retryablehttp.Client
	maxBytes   int64
	maxRecords int
}

// NewClient creates a new dataset client
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 << 20
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		retryClient.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		retryClient.RetryWaitMax = cfg.RetryWaitMax
	}
	retryClient.Logger = nil
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("Retrying dataset download %s (attempt %d)", req.URL, attempt+1)
		}
	}

	return &Client{
		httpClient: retryClient,
		maxBytes:   cfg.MaxBytes,
		maxRecords: cfg.MaxRecords,
	}
}

// Open loads a dataset from a local path or an http(s) URL
func (c *Client) Open(ctx context.Context, location string) (*dataset.Dataset, error) {
	if location == "" {
		return nil, fmt.Errorf("dataset location is empty")
	}
	if isURL(location) {
		return c.Fetch(ctx, location)
	}
	return c.ReadFile(location)
}

// Fetch downloads a CSV table over HTTP, retrying network errors and 5xx responses
func (c *Client) Fetch(ctx context.Context, url string) (*dataset.Dataset, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch dataset: unexpected status %d", resp.StatusCode)
	}

	body, err := c.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	return c.parse(body)
}

// ReadFile parses a CSV table from disk
func (c *Client) ReadFile(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	body, err := c.readLimited(f)
	if err != nil {
		return nil, err
	}
	return c.parse(body)
}

func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.maxBytes)
	}
	return body, nil
}

func (c *Client) parse(body []byte) (*dataset.Dataset, error) {
	ds, err := dataset.Parse(bytes.NewReader(body), dataset.Options{MaxRecords: c.maxRecords})
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return ds, nil
}

func isURL(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
