package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/google/uuid"

	"github.com/nerrad567/mqtt-cli/internal/qos2"
)

// Session is a connection to one MQTT broker.
//
// PahoSession is the production implementation. The executor depends only
// on this interface so tests can substitute a fake.
type Session interface {
	// Connect blocks until the broker answers, the connect timeout expires,
	// or ctx is cancelled.
	Connect(ctx context.Context, params ConnectParams) (ConnAck, error)

	// Subscribe sends a SUBSCRIBE and returns immediately. handler runs on
	// the library's delivery goroutine for every matching message.
	Subscribe(filter string, qos byte, handler MessageHandler) Token

	// Publish sends msg and returns immediately.
	Publish(msg Message) Token

	// IsConnected reports the session's current state.
	IsConnected() bool

	// Info identifies the session for log prefixes.
	Info() qos2.ClientInfo

	// Disconnect closes the connection gracefully.
	Disconnect() error
}

// Token tracks completion of an asynchronous operation.
// paho tokens satisfy this interface.
type Token interface {
	// Done is closed when the operation completes.
	Done() <-chan struct{}

	// Error returns the outcome once Done is closed.
	Error() error
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked on the paho delivery goroutine and should hand
// work off rather than block.
type MessageHandler func(msg Message)

// Message is an inbound or outbound MQTT application message.
type Message struct {
	Topic     string
	QoS       byte
	Retain    bool
	Duplicate bool
	PacketID  uint16
	Payload   []byte
}

// Will is the Last Will and Testament registered at connect.
type Will struct {
	Topic   string
	Payload string
	QoS     byte
	Retain  bool
}

// ConnectParams describes one connection attempt.
type ConnectParams struct {
	Host            string
	Port            int
	ClientID        string
	ProtocolVersion uint // 3 = MQTT 3.1, 4 = MQTT 3.1.1
	Username        string
	Password        string
	CleanSession    bool
	KeepAlive       time.Duration
	ConnectTimeout  time.Duration

	// TLS enables an encrypted connection when non-nil.
	TLS *tls.Config

	// Will is registered with the broker when non-nil.
	Will *Will

	// Store persists in-flight QoS 1/2 packets. paho's memory store is used when nil.
	Store pahomqtt.Store

	// Observer is told about every inbound QoS 2 handshake step.
	Observer qos2.Observer
}

// BrokerURI returns the paho server URI for these parameters.
func (p ConnectParams) BrokerURI() string {
	scheme := "tcp"
	if p.TLS != nil {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}

// String summarises the parameters for debug logs. Credentials are omitted.
func (p ConnectParams) String() string {
	return fmt.Sprintf("ConnectParams{broker=%s, clientId=%s, protocolVersion=%d, cleanSession=%t, keepAlive=%s, user=%q, tls=%t, will=%t}",
		p.BrokerURI(), p.ClientID, p.ProtocolVersion, p.CleanSession, p.KeepAlive, p.Username, p.TLS != nil, p.Will != nil)
}

// GenerateClientID returns "<prefix>-<8 hex chars>".
func GenerateClientID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// ConnAck is the broker's answer to CONNECT.
type ConnAck struct {
	ReturnCode     byte
	SessionPresent bool
}

// Accepted reports whether the broker accepted the connection.
func (a ConnAck) Accepted() bool {
	return a.ReturnCode == packets.Accepted
}

// Refused reports whether the broker sent a CONNACK rejecting the
// connection. paho's local codes for network errors and protocol
// violations are not refusals.
func (a ConnAck) Refused() bool {
	return a.ReturnCode >= packets.ErrRefusedBadProtocolVersion && a.ReturnCode <= packets.ErrRefusedNotAuthorised
}

// Reason returns the terse reason text for the return code.
func (a ConnAck) Reason() string {
	if text, ok := packets.ConnackReturnCodes[a.ReturnCode]; ok {
		return text
	}
	return fmt.Sprintf("Unknown return code %d", a.ReturnCode)
}

// String returns the full acknowledgment summary used in debug logs.
func (a ConnAck) String() string {
	return fmt.Sprintf("MqttConnAck{returnCode=%d, reason=%s, sessionPresent=%t}", a.ReturnCode, a.Reason(), a.SessionPresent)
}
