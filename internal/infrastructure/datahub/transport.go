package datahub

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// rateLimitedTransport waits for a limiter slot before each request.
type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

// newRateLimitedTransport allows perSecond requests per second with a burst of one.
func newRateLimitedTransport(perSecond float64, next http.RoundTripper) *rateLimitedTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &rateLimitedTransport{
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		next:    next,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return t.next.RoundTrip(req)
}
