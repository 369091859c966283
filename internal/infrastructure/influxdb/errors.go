package influxdb

import "errors"

// Sentinel errors for the message sink.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrUnreachable) {
//	    // subscribe without the sink
//	}
var (
	// ErrMissingSetting is returned by Open when url, org, bucket or
	// measurement is empty.
	ErrMissingSetting = errors.New("influxdb: missing setting")

	// ErrUnreachable is returned by Open when the server cannot be pinged
	// or reports itself unhealthy.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrSinkClosed is returned by WriteMessage after Close.
	ErrSinkClosed = errors.New("influxdb: sink closed")

	// ErrBatchRejected wraps the asynchronous failure of a batch of
	// messages, as passed to the SetOnError callback.
	ErrBatchRejected = errors.New("influxdb: batch rejected")
)
