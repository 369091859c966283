package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
)

// SubscribeParams selects where a subscription's messages go.
type SubscribeParams struct {
	// OutputFile, when set, receives one "<filter>/: <payload>" line per message.
	OutputFile string

	// PrintStdout echoes each payload to standard output.
	PrintStdout bool

	// Sinks receive every message and are closed with the subscription.
	Sinks []Sink
}

// Subscription is one (filter, QoS) pair bound to a session.
type Subscription struct {
	Filter string
	QoS    byte

	exec        *Executor
	file        *fileSink
	printStdout bool
	sinks       []Sink

	queue    chan mqtt.Message
	stop     chan struct{}
	finished chan struct{}

	acked  chan struct{}
	ackErr error

	dropped  atomic.Int64
	dropping atomic.Bool

	closeOnce sync.Once
	closeErr  error
	release   func() error
}

// Subscribe subscribes session to filter without blocking.
//
// Messages are queued in arrival order and dropped when the queue is full.
// Each is decoded as text and, in order, appended to the output file,
// echoed to stdout, handed to the extra sinks, and logged. The SUBACK is
// logged separately as success with the filter or failure with the filter
// and cause.
//
// The subscription's close hook is registered with the executor's
// registry before the SUBSCRIBE is sent.
//
// Parameters:
//   - session: A connected session
//   - params: Output destinations
//   - filter: The topic filter
//   - qos: Requested QoS
//
// Returns:
//   - *Subscription: The live subscription
//   - error: Only when the output file cannot be opened; nothing is subscribed then
func (e *Executor) Subscribe(session mqtt.Session, params SubscribeParams, filter string, qos byte) (*Subscription, error) {
	var file *fileSink
	if params.OutputFile != "" {
		f, err := openFileSink(params.OutputFile)
		if err != nil {
			e.logger.Error("Client subscribe failed: cannot open output file", "file", params.OutputFile, "error", err)
			return nil, err
		}
		file = f
	}

	sub := &Subscription{
		Filter:      filter,
		QoS:         qos,
		exec:        e,
		file:        file,
		printStdout: params.PrintStdout,
		sinks:       params.Sinks,
		queue:       make(chan mqtt.Message, e.queueSize),
		stop:        make(chan struct{}),
		finished:    make(chan struct{}),
		acked:       make(chan struct{}),
	}

	go sub.run()
	sub.release = e.registry.Register("subscription "+filter, sub.shutdown)

	token := session.Subscribe(filter, qos, sub.deliver)
	go sub.awaitAck(token)

	return sub, nil
}

// deliver runs on the library's router goroutine and never blocks it, so
// keepalive and acknowledgments keep flowing behind a slow sink. A message
// that finds the queue full is dropped and counted; the first drop of each
// run of drops is logged.
func (s *Subscription) deliver(msg mqtt.Message) {
	select {
	case <-s.stop:
		return
	default:
	}

	select {
	case s.queue <- msg:
		s.dropping.Store(false)
	default:
		total := s.dropped.Add(1)
		if !s.dropping.Swap(true) {
			s.exec.logger.Warn("Client dropping messages: subscription queue full",
				"topic", s.Filter,
				"capacity", cap(s.queue),
				"dropped_total", total,
			)
		}
	}
}

// Dropped returns how many messages were discarded because the queue was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

// run is the single writer for this subscription's sinks.
func (s *Subscription) run() {
	defer close(s.finished)
	for {
		select {
		case msg := <-s.queue:
			s.handle(msg)
		case <-s.stop:
			for {
				select {
				case msg := <-s.queue:
					s.handle(msg)
				default:
					return
				}
			}
		}
	}
}

func (s *Subscription) handle(msg mqtt.Message) {
	logger := s.exec.logger
	defer func() {
		if r := recover(); r != nil {
			logger.Error("message handler panic recovered", "topic", msg.Topic, "panic", r)
		}
	}()

	payload := strings.ToValidUTF8(string(msg.Payload), "�")

	if err := s.file.WriteLine(s.Filter, payload); err != nil {
		logger.Warn("writing received message to file failed", "file", s.file.path, "error", err)
	}

	if s.printStdout {
		if _, err := fmt.Fprintln(s.exec.stdout, payload); err != nil {
			logger.Warn("writing received message to stdout failed", "error", err)
		}
	}

	for _, sink := range s.sinks {
		if err := sink.WriteMessage(msg); err != nil {
			logger.Warn("writing received message to sink failed", "error", err)
		}
	}

	if s.exec.debug {
		logger.Debug(fmt.Sprintf("Client received on topic: %s message: '%s'", msg.Topic, payload),
			"qos", msg.QoS,
			"retain", msg.Retain,
		)
	} else {
		logger.Info(fmt.Sprintf("Client received msg: '%s'", preview(payload)))
	}
}

func (s *Subscription) awaitAck(token mqtt.Token) {
	<-token.Done()
	s.ackErr = token.Error()
	close(s.acked)

	logger := s.exec.logger
	if s.ackErr != nil {
		if s.exec.debug {
			logger.Debug("Client subscribe failed with reason: "+s.ackErr.Error(),
				"topic", s.Filter,
				"error", fmt.Sprintf("%+v", s.ackErr),
			)
		} else {
			logger.Error(fmt.Sprintf("Client subscribe to topic: %s failed with reason: %s", s.Filter, s.ackErr))
		}
		return
	}
	logger.Info("Client subscribed to Topic: " + s.Filter)
}

// Wait blocks until the broker acknowledges the subscription.
//
// Returns:
//   - error: The subscribe failure, or ctx's error if it ends first
func (s *Subscription) Wait(ctx context.Context) error {
	select {
	case <-s.acked:
		return s.ackErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake, drains queued messages and closes every sink once.
// It is safe to call more than once and concurrently with the registry.
func (s *Subscription) Close() error {
	return s.release()
}

// shutdown is the registered close hook.
func (s *Subscription) shutdown() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.finished

		if n := s.dropped.Load(); n > 0 {
			s.exec.logger.Warn("Client dropped messages on subscription", "topic", s.Filter, "dropped_total", n)
		}

		errs := []error{s.file.Close()}
		for _, sink := range s.sinks {
			errs = append(errs, sink.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// preview shortens payload to previewLength characters, appending "..."
// when anything was cut.
func preview(payload string) string {
	runes := []rune(payload)
	if len(runes) <= previewLength {
		return payload
	}
	return string(runes[:previewLength]) + "..."
}
