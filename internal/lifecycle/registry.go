// Package lifecycle owns the cleanup hooks of one CLI invocation.
//
// Components that hold resources (subscription sinks, the MQTT session,
// the InfluxDB client) register a close function with the Registry. The
// command layer closes the Registry on every exit path, including signals,
// and each hook runs exactly once.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
)

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Registry collects cleanup hooks and runs them in reverse order.
//
// Thread Safety:
//   - Register, Close and the release functions are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	hooks  []*hook
	closed bool
	logger Logger
}

type hook struct {
	name string
	once sync.Once
	fn   func() error
	err  error
}

func (h *hook) run() error {
	h.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				h.err = fmt.Errorf("hook %s panicked: %v", h.name, r)
			}
		}()
		if err := h.fn(); err != nil {
			h.err = fmt.Errorf("hook %s: %w", h.name, err)
		}
	})
	return h.err
}

// NewRegistry creates an empty registry. logger may be nil.
func NewRegistry(logger Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a cleanup hook.
//
// The returned release function runs the hook early; the hook still runs
// at most once, whether through release or Close. Registering on a closed
// registry runs the hook immediately.
//
// Parameters:
//   - name: Identifies the hook in logs and errors
//   - fn: The cleanup function
//
// Returns:
//   - func() error: Runs the hook now (idempotent)
func (r *Registry) Register(name string, fn func() error) (release func() error) {
	h := &hook{name: name, fn: fn}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = h.run()
		return h.run
	}
	r.hooks = append(r.hooks, h)
	r.mu.Unlock()

	return h.run
}

// Close runs every hook in reverse registration order.
//
// Hook errors are logged and joined; a failing hook does not stop later
// ones. Close is idempotent.
//
// Returns:
//   - error: All hook errors joined, or nil
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	hooks := r.hooks
	r.hooks = nil
	r.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.run(); err != nil {
			if r.logger != nil {
				r.logger.Warn("cleanup hook failed", "hook", h.name, "error", err)
			}
			errs = append(errs, err)
			continue
		}
		if r.logger != nil {
			r.logger.Debug("cleanup hook ran", "hook", h.name)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of hooks still pending.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}
