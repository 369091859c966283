package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/mqtt-cli/internal/qos2"
)

// PahoSession implements Session on top of paho.mqtt.golang.
//
// A PahoSession is created disconnected; the paho client is built on
// Connect so every attempt uses fresh options.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type PahoSession struct {
	mu     sync.RWMutex
	client pahomqtt.Client
	info   qos2.ClientInfo

	// dialErr is the last error from opening the network connection.
	dialErr error

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// NewSession creates a disconnected paho-backed session.
func NewSession() *PahoSession {
	return &PahoSession{}
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from params (broker URL, auth, TLS, will)
//  2. Wraps the network connection with the QoS 2 observer when one is set
//  3. Waits for CONNACK, the connect timeout, or ctx cancellation
//
// Parameters:
//   - ctx: Cancels the wait for CONNACK
//   - params: Connection parameters
//
// Returns:
//   - ConnAck: The broker's answer (zero value if none was received)
//   - error: ErrConnectionFailed (wrapping the network cause), *RefusedError
//     for a non-zero return code, or ErrTimeout when ctx ends first
func (s *PahoSession) Connect(ctx context.Context, params ConnectParams) (ConnAck, error) {
	info := qos2.ClientInfo{
		ClientID:        params.ClientID,
		ServerURI:       params.BrokerURI(),
		ProtocolVersion: params.ProtocolVersion,
	}

	opts := buildClientOptions(params, s.openConnection(params, info))
	client := pahomqtt.NewClient(opts)

	s.mu.Lock()
	if s.client != nil && s.client.IsConnected() {
		s.mu.Unlock()
		return ConnAck{}, fmt.Errorf("%w: session already connected", ErrConnectionFailed)
	}
	s.client = client
	s.info = info
	s.dialErr = nil
	s.mu.Unlock()

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return ConnAck{}, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}

	var ack ConnAck
	if ct, ok := token.(*pahomqtt.ConnectToken); ok {
		ack = ConnAck{ReturnCode: ct.ReturnCode(), SessionPresent: ct.SessionPresent()}
	}

	if err := token.Error(); err != nil {
		s.mu.RLock()
		dialErr := s.dialErr
		s.mu.RUnlock()
		if dialErr != nil {
			return ack, fmt.Errorf("%w: %w", ErrConnectionFailed, dialErr)
		}
		if ack.Refused() {
			return ack, &RefusedError{Ack: ack}
		}
		return ack, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return ack, nil
}

// openConnection returns the dial function paho uses for the network
// connection. It records dial errors and installs the QoS 2 observer.
func (s *PahoSession) openConnection(params ConnectParams, info qos2.ClientInfo) pahomqtt.OpenConnectionFunc {
	return func(uri *url.URL, options pahomqtt.ClientOptions) (net.Conn, error) {
		conn, err := dialBroker(uri, options.TLSConfig, options.ConnectTimeout)
		if err != nil {
			s.mu.Lock()
			s.dialErr = err
			s.mu.Unlock()
			return nil, err
		}
		if params.Observer == nil {
			return conn, nil
		}
		return newObservedConn(conn, info, params.Observer), nil
	}
}

// Subscribe registers handler for messages matching filter.
//
// The SUBSCRIBE is sent asynchronously; the returned token completes on
// SUBACK. Validation and connection failures return an already completed
// token.
//
// Parameters:
//   - filter: The topic filter, wildcards allowed
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback invoked for each message
//
// Returns:
//   - Token: Completes with nil or an error wrapping ErrSubscribeFailed
func (s *PahoSession) Subscribe(filter string, qos byte, handler MessageHandler) Token {
	if err := ValidateTopicFilter(filter); err != nil {
		return failedToken(err)
	}
	if qos > maxQoS {
		return failedToken(ErrInvalidQoS)
	}
	if handler == nil {
		return failedToken(fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed))
	}

	client := s.pahoClient()
	if client == nil || !client.IsConnected() {
		return failedToken(ErrNotConnected)
	}

	return subscribeToken{
		Token:  client.Subscribe(filter, qos, s.wrapHandler(handler)),
		filter: filter,
	}
}

// Publish sends msg to the broker.
//
// The returned token completes when the publish flow for msg.QoS finishes
// (immediately after write for QoS 0, on PUBACK for 1, on PUBCOMP for 2).
//
// Returns:
//   - Token: Completes with nil or an error wrapping ErrPublishFailed
func (s *PahoSession) Publish(msg Message) Token {
	if err := ValidateTopicName(msg.Topic); err != nil {
		return failedToken(err)
	}
	if msg.QoS > maxQoS {
		return failedToken(ErrInvalidQoS)
	}
	if len(msg.Payload) > maxPayloadSize {
		return failedToken(fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(msg.Payload), maxPayloadSize))
	}

	client := s.pahoClient()
	if client == nil || !client.IsConnected() {
		return failedToken(ErrNotConnected)
	}

	return publishToken{Token: client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)}
}

// IsConnected returns the current connection state.
func (s *PahoSession) IsConnected() bool {
	client := s.pahoClient()
	return client != nil && client.IsConnected()
}

// Info identifies the session for log prefixes.
func (s *PahoSession) Info() qos2.ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Disconnect gracefully disconnects from the MQTT broker.
//
// Returns:
//   - error: ErrNotConnected if the session was never connected or is already closed
func (s *PahoSession) Disconnect() error {
	client := s.pahoClient()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	// Disconnect with quiesce period for pending operations
	client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// SetLogger sets a logger for error and panic logging.
// If not set, panics in handlers are recovered silently.
func (s *PahoSession) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (s *PahoSession) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *PahoSession) pahoClient() pahomqtt.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// wrapHandler converts a paho message and recovers handler panics.
func (s *PahoSession) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := s.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered",
						"topic", msg.Topic(),
						"panic", r,
					)
				}
			}
		}()

		handler(Message{
			Topic:     msg.Topic(),
			QoS:       msg.Qos(),
			Retain:    msg.Retained(),
			Duplicate: msg.Duplicate(),
			PacketID:  msg.MessageID(),
			Payload:   msg.Payload(),
		})
	}
}

// compile-time check
var _ Session = (*PahoSession)(nil)
