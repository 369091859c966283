package tasks

import (
	"errors"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
)

// Kind tags a Result.
type Kind int

// Result kinds.
const (
	Success Kind = iota
	ValidationError
	RemoteError
	OutputError
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ValidationError:
		return "validation error"
	case RemoteError:
		return "remote error"
	case OutputError:
		return "output error"
	default:
		return "unknown"
	}
}

// Result is the outcome of one task.
type Result struct {
	Kind Kind

	// Value is the success payload (created or fetched resource, list items).
	Value any

	// Reason is the validation message.
	Reason string

	// StatusCode and Body are set when the remote API answered with an error.
	StatusCode int
	Body       []byte

	// Err is the remote failure as returned by the client, or the
	// rendering failure for OutputError.
	Err error
}

// OK reports whether the task succeeded.
func (r Result) OK() bool {
	return r.Kind == Success
}

// ExitCode returns 0 on success and 1 otherwise.
func (r Result) ExitCode() int {
	if r.OK() {
		return 0
	}
	return 1
}

func succeeded(value any) Result {
	return Result{Kind: Success, Value: value}
}

func invalid(reason string) Result {
	return Result{Kind: ValidationError, Reason: reason}
}

func failed(err error) Result {
	r := Result{Kind: RemoteError, Err: err}
	var apiErr *datahub.APIError
	if errors.As(err, &apiErr) {
		r.StatusCode = apiErr.StatusCode
		r.Body = apiErr.Body
	}
	return r
}

// unprinted is a call that succeeded remotely but whose result could not
// be written out.
func unprinted(value any, err error) Result {
	return Result{Kind: OutputError, Value: value, Err: err}
}
