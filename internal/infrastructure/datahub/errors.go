package datahub

import (
	"errors"
	"fmt"
)

// Sentinel errors for Data Hub operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, datahub.ErrRateLimited) {
//	    // The request never left the process
//	}
var (
	// ErrRequestFailed indicates the request could not be sent or its
	// response could not be read.
	ErrRequestFailed = errors.New("datahub: request failed")

	// ErrRateLimited indicates the rate limiter could not grant a slot
	// before the request context ended.
	ErrRateLimited = errors.New("datahub: rate limit wait failed")

	// ErrInvalidResponse indicates a 2xx response whose body could not be decoded.
	ErrInvalidResponse = errors.New("datahub: invalid response")

	// ErrInvalidConfig indicates an unusable base URL or rate.
	ErrInvalidConfig = errors.New("datahub: invalid client configuration")
)

// APIError is a non-2xx response from the Data Hub API.
type APIError struct {
	// Operation names the call, e.g. "create data policy".
	Operation string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the HTTP status line text, e.g. "404 Not Found".
	Status string

	// Body is the raw response body, usually RFC 7807 problem JSON.
	Body []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("datahub: %s: HTTP %d", e.Operation, e.StatusCode)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
