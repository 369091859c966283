package qos2

import (
	"fmt"
	"net/url"
)

// PacketType names an MQTT control packet in log output.
type PacketType string

// Handshake packet types.
const (
	PacketPubrec  PacketType = "PUBREC"
	PacketPubrel  PacketType = "PUBREL"
	PacketPubcomp PacketType = "PUBCOMP"
)

// ClientInfo identifies the session a handshake belongs to.
type ClientInfo struct {
	ClientID        string
	ServerURI       string
	ProtocolVersion uint
}

// Prefix returns the session-qualified identity used at the start of every
// log line, e.g. "Client 'sensor-1@localhost'".
func (c ClientInfo) Prefix() string {
	host := c.ServerURI
	if u, err := url.Parse(c.ServerURI); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	if host == "" {
		return fmt.Sprintf("Client '%s'", c.ClientID)
	}
	return fmt.Sprintf("Client '%s@%s'", c.ClientID, host)
}

// Publish is a snapshot of an inbound QoS 2 PUBLISH.
type Publish struct {
	Topic       string
	PacketID    uint16
	QoS         byte
	Retain      bool
	Dup         bool
	PayloadSize int
}

func (p Publish) String() string {
	return fmt.Sprintf("MqttPublish{topic=%s, packetId=%d, qos=%d, retain=%t, dup=%t, payloadSize=%d}",
		p.Topic, p.PacketID, p.QoS, p.Retain, p.Dup, p.PayloadSize)
}

// Release is a snapshot of an inbound PUBREL.
type Release struct {
	PacketID uint16
}

func (r Release) String() string {
	return fmt.Sprintf("MqttPubRel{packetId=%d}", r.PacketID)
}

// Ack is a snapshot of the PUBREC or PUBCOMP the client is about to send.
// MQTT 3.1.1 acknowledgements carry no reason code, so ReasonCode is 0
// (success) there.
type Ack struct {
	Type       PacketType
	PacketID   uint16
	ReasonCode byte
}

func (a Ack) String() string {
	name := "PubRec"
	if a.Type == PacketPubcomp {
		name = "PubComp"
	}
	return fmt.Sprintf("Mqtt%s{packetId=%d, reasonCode=%s}", name, a.PacketID, reasonName(a.ReasonCode))
}

func reasonName(code byte) string {
	switch code {
	case 0x00:
		return "SUCCESS"
	case 0x10:
		return "NO_MATCHING_SUBSCRIBERS"
	case 0x80:
		return "UNSPECIFIED_ERROR"
	case 0x92:
		return "PACKET_IDENTIFIER_NOT_FOUND"
	default:
		return fmt.Sprintf("0x%02X", code)
	}
}
