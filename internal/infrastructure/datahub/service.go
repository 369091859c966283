package datahub

import (
	"net/http"
	"sync"
	"time"
)

// Service hands out clients bound to (base URL, rate).
//
// Clients for the same pair are cached and shared. Callers must not rely on
// identity, only on the handle behaving the same.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Service struct {
	timeout   time.Duration
	transport http.RoundTripper

	mu      sync.Mutex
	clients map[clientKey]*Client
}

type clientKey struct {
	baseURL string
	rate    float64
}

// NewService creates a Service whose clients use timeout per request.
func NewService(timeout time.Duration) *Service {
	return &Service{
		timeout: timeout,
		clients: make(map[clientKey]*Client),
	}
}

// WithTransport sets the transport under the rate limiter for clients created later.
func (s *Service) WithTransport(rt http.RoundTripper) *Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = rt
	return s
}

// Client returns the client for baseURL and rate, creating it on first use.
//
// Parameters:
//   - baseURL: Absolute http(s) URL of the HiveMQ REST API
//   - rate: Maximum requests per second, greater than 0
//
// Returns:
//   - *Client: A client throttled to rate
//   - error: ErrInvalidConfig for a bad URL or rate
func (s *Service) Client(baseURL string, rate float64) (*Client, error) {
	key := clientKey{baseURL: baseURL, rate: rate}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[key]; ok {
		return c, nil
	}

	c, err := NewClient(ClientConfig{
		BaseURL:   baseURL,
		Rate:      rate,
		Timeout:   s.timeout,
		Transport: s.transport,
	})
	if err != nil {
		return nil, err
	}
	s.clients[key] = c
	return c, nil
}
