package datahub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default settings for Data Hub requests.
const (
	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 64 << 10

	// maxPages bounds cursor pagination of a single list call.
	maxPages = 1000

	apiPrefix = "/api/v1/data-hub"
)

// Client is bound to one Data Hub base URL and request rate.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	rate       float64
	httpClient *http.Client
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the HiveMQ REST API root, e.g. http://localhost:8888.
	BaseURL string

	// Rate is the maximum requests per second. Must be greater than 0.
	Rate float64

	// Timeout bounds each request. Defaults to 30s.
	Timeout time.Duration

	// Transport is the underlying transport. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// NewClient creates a Client.
//
// Parameters:
//   - cfg: Base URL, rate and transport settings
//
// Returns:
//   - *Client: Ready for use; no request is made
//   - error: ErrInvalidConfig if the URL is not absolute http(s) or the rate is not positive
func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q must be an absolute http or https URL", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("%w: rate must be greater than 0, got %v", ErrInvalidConfig, cfg.Rate)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		rate:    cfg.Rate,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newRateLimitedTransport(cfg.Rate, cfg.Transport),
		},
	}, nil
}

// BaseURL returns the base URL the client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Rate returns the request rate ceiling.
func (c *Client) Rate() float64 {
	return c.rate
}

// listPage is the envelope of every list response.
type listPage struct {
	Items []json.RawMessage `json:"items"`
	Links struct {
		Next string `json:"next"`
	} `json:"_links"`
}

// do sends one request and decodes a 2xx body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body []byte, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRequestFailed, operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRequestFailed, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       data,
		}
	}

	if out == nil {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: reading body: %w", ErrRequestFailed, operation, err)
	}
	if raw, ok := out.(*json.RawMessage); ok {
		if !json.Valid(data) {
			return fmt.Errorf("%w: %s: body is not JSON", ErrInvalidResponse, operation)
		}
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidResponse, operation, err)
	}
	return nil
}

// list collects every page of a list endpoint, following _links.next.
func (c *Client) list(ctx context.Context, operation, path string, query url.Values) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	seen := make(map[string]bool)

	for page := 0; page < maxPages; page++ {
		var p listPage
		if err := c.do(ctx, operation, http.MethodGet, path, query, nil, &p); err != nil {
			return nil, err
		}
		items = append(items, p.Items...)

		next := p.Links.Next
		if next == "" || seen[next] {
			return items, nil
		}
		seen[next] = true

		u, err := url.Parse(next)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: next link %q: %w", ErrInvalidResponse, operation, next, err)
		}
		if u.Path != "" {
			path = u.Path
		}
		query = u.Query()
	}
	return items, nil
}

// resourcePath joins a collection path and an escaped id.
func resourcePath(collection, id string) string {
	return collection + "/" + url.PathEscape(id)
}

// setList adds a comma-joined query parameter when values is non-empty.
func setList(q url.Values, key string, values []string) {
	if len(values) > 0 {
		q.Set(key, strings.Join(values, ","))
	}
}
