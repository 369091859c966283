package executor

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/logging"
	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
	"github.com/nerrad567/mqtt-cli/internal/lifecycle"
	"github.com/nerrad567/mqtt-cli/internal/qos2"
)

// previewLength is how many characters of a payload the info-level
// received log shows.
const previewLength = 10

// defaultQueueSize is the per-subscription queue capacity.
const defaultQueueSize = 1024

// Options configures an Executor.
type Options struct {
	// Debug switches the outcome logs to full detail.
	Debug bool

	// Stdout receives echoed payloads. Defaults to os.Stdout.
	Stdout io.Writer

	// Logger defaults to logging.Default().
	Logger *logging.Logger

	// Registry receives every subscription's close hook. A private
	// registry is created when nil.
	Registry *lifecycle.Registry

	// Interceptor is attached to connections that have no observer.
	Interceptor qos2.Observer

	// QueueSize is the per-subscription queue capacity. Messages that
	// arrive while the queue is full are dropped and counted.
	QueueSize int
}

// Executor runs MQTT operations for one CLI invocation.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Executor struct {
	debug       bool
	stdout      io.Writer
	logger      *logging.Logger
	registry    *lifecycle.Registry
	interceptor qos2.Observer
	queueSize   int
}

// New creates an Executor.
func New(opts Options) *Executor {
	e := &Executor{
		debug:       opts.Debug,
		stdout:      opts.Stdout,
		logger:      opts.Logger,
		registry:    opts.Registry,
		interceptor: opts.Interceptor,
		queueSize:   opts.QueueSize,
	}
	if e.stdout == nil {
		e.stdout = os.Stdout
	}
	e.stdout = &syncWriter{w: e.stdout}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	if e.registry == nil {
		e.registry = lifecycle.NewRegistry(e.logger)
	}
	if e.interceptor == nil {
		e.interceptor = qos2.New(e.logger.Logger)
	}
	if e.queueSize <= 0 {
		e.queueSize = defaultQueueSize
	}
	return e
}

// Connect connects session and reports whether it is now connected.
//
// It blocks until the broker answers or the connection fails. Failures are
// logged, never returned: a wrong host, a refused connection or a rejecting
// CONNACK yields false and the caller picks the exit code. The result
// comes from the session's state after the call rather than from the
// acknowledgment alone.
//
// Parameters:
//   - ctx: Cancels the wait for the broker
//   - session: The session to connect
//   - params: Connection parameters; the interceptor is attached when
//     params.Observer is nil
//
// Returns:
//   - bool: session.IsConnected() after the attempt
func (e *Executor) Connect(ctx context.Context, session mqtt.Session, params mqtt.ConnectParams) bool {
	if params.Observer == nil {
		params.Observer = e.interceptor
	}

	ack, err := session.Connect(ctx, params)
	if err != nil {
		if e.debug {
			e.logger.Debug("Client connect failed with "+params.String(),
				"connack", ack.String(),
				"error", fmt.Sprintf("%+v", err),
			)
		} else {
			e.logger.Error("Client connect failed with reason: " + mqtt.FailureReason(err))
		}
		return session.IsConnected()
	}

	if e.debug {
		e.logger.Debug("Client connect with "+params.String(), "connack", ack.String())
	} else {
		e.logger.Info("Client connect with " + ack.Reason())
	}
	return session.IsConnected()
}

// Publish sends msg without blocking.
//
// The completion is logged as success with the topic or as failure with
// the topic and cause.
//
// Returns:
//   - <-chan bool: Receives the outcome once, then closes
func (e *Executor) Publish(session mqtt.Session, msg mqtt.Message) <-chan bool {
	result := make(chan bool, 1)
	token := session.Publish(msg)

	go func() {
		defer close(result)
		<-token.Done()
		if err := token.Error(); err != nil {
			if e.debug {
				e.logger.Debug("Client publish failed", "topic", msg.Topic, "qos", msg.QoS, "error", fmt.Sprintf("%+v", err))
			} else {
				e.logger.Error(fmt.Sprintf("Client publish to topic: %s failed with reason: %s", msg.Topic, err))
			}
			result <- false
			return
		}
		if e.debug {
			e.logger.Debug("Client published to topic: "+msg.Topic,
				"qos", msg.QoS,
				"retain", msg.Retain,
				"payload", string(msg.Payload),
			)
		} else {
			e.logger.Info("Client published to topic: " + msg.Topic)
		}
		result <- true
	}()

	return result
}

// Disconnect disconnects session gracefully.
//
// Returns:
//   - error: From the session (mqtt.ErrNotConnected if it was not connected)
func (e *Executor) Disconnect(session mqtt.Session) error {
	prefix := session.Info().Prefix()
	if err := session.Disconnect(); err != nil {
		e.logger.Debug(prefix+" disconnect skipped", "error", err)
		return err
	}
	e.logger.Info(prefix + " disconnected")
	return nil
}

// Registry returns the registry holding subscription close hooks.
func (e *Executor) Registry() *lifecycle.Registry {
	return e.registry
}
