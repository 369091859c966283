package mqtt

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureReason returns a terse, user-facing reason for a connect error.
//
// Recognised causes:
//   - "unknown host" for DNS failures
//   - "connection refused" and "connection reset"
//   - "timeout" for dial, CONNACK and context deadlines
//   - "broker refused connection: <reason>" for a rejecting CONNACK
//
// Anything else is returned as the error text.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}

	var refused *RefusedError
	if errors.As(err, &refused) {
		return "broker refused connection: " + refused.Ack.Reason()
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "unknown host"
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return "connection refused"
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return "connection reset"
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	// paho sometimes flattens the cause into a string.
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no such host"):
		return "unknown host"
	case strings.Contains(lower, "connection refused"):
		return "connection refused"
	case strings.Contains(lower, "connection reset"):
		return "connection reset"
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return "timeout"
	}
	return msg
}
