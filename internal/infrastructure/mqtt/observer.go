package mqtt

import (
	"encoding/binary"
	"net"
	"sync"

	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/nerrad567/mqtt-cli/internal/qos2"
)

// paho answers inbound QoS 2 traffic itself and exposes no hook for it.
// observedConn sits under paho's reader, scans the inbound byte stream for
// QoS 2 PUBLISH and PUBREL frames, and reports each to a qos2.Observer
// before paho sees the bytes. Reads are passed through unchanged.

// observedConn wraps the broker connection with a frame scanner.
type observedConn struct {
	net.Conn
	scanner *frameScanner
}

func newObservedConn(conn net.Conn, info qos2.ClientInfo, observer qos2.Observer) *observedConn {
	return &observedConn{
		Conn:    conn,
		scanner: newFrameScanner(info, observer),
	}
}

// Read reads from the underlying connection and feeds the scanner.
func (c *observedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.scanner.feed(p[:n])
	}
	return n, err
}

// maxLengthBytes is the longest remaining-length varint MQTT allows.
const maxLengthBytes = 4

// frameScanner splits an inbound MQTT byte stream into frames.
//
// Only the headers of interesting frames are buffered. Everything else,
// including PUBLISH payloads, is skipped by count. A malformed frame
// disables the scanner for the rest of the connection.
type frameScanner struct {
	mu       sync.Mutex
	info     qos2.ClientInfo
	observer qos2.Observer

	buf      []byte
	skip     int
	disabled bool
}

func newFrameScanner(info qos2.ClientInfo, observer qos2.Observer) *frameScanner {
	return &frameScanner{info: info, observer: observer}
}

// feed consumes bytes read from the broker.
func (s *frameScanner) feed(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.disable()
		}
	}()

	for len(p) > 0 && !s.disabled {
		if s.skip > 0 {
			n := min(s.skip, len(p))
			s.skip -= n
			p = p[n:]
			continue
		}

		s.buf = append(s.buf, p...)
		p = nil
		for s.next() {
		}
	}
}

// next decodes one frame from the head of buf. It returns false when more
// bytes are needed or the scanner was disabled.
func (s *frameScanner) next() bool {
	if len(s.buf) == 0 || s.disabled {
		return false
	}

	remaining, lengthBytes, complete, ok := decodeRemainingLength(s.buf[1:])
	if !ok {
		s.disable()
		return false
	}
	if !complete {
		return false
	}

	header := 1 + lengthBytes
	total := header + remaining
	first := s.buf[0]
	packetType := first >> 4

	need := 0
	switch {
	case packetType == packets.Publish && (first>>1)&0x03 == 2:
		if len(s.buf) < header+2 {
			return false
		}
		topicLen := int(binary.BigEndian.Uint16(s.buf[header:]))
		need = header + 2 + topicLen + 2
	case packetType == packets.Pubrel:
		need = header + 2
	}

	if need > total {
		s.disable()
		return false
	}
	if len(s.buf) < need {
		return false
	}

	switch {
	case need > 0 && packetType == packets.Publish:
		topicLen := int(binary.BigEndian.Uint16(s.buf[header:]))
		topic := string(s.buf[header+2 : header+2+topicLen])
		id := binary.BigEndian.Uint16(s.buf[header+2+topicLen:])
		s.observer.OnPublish(s.info, qos2.Publish{
			Topic:       topic,
			PacketID:    id,
			QoS:         2,
			Retain:      first&0x01 != 0,
			Dup:         first&0x08 != 0,
			PayloadSize: total - need,
		}, qos2.Ack{Type: qos2.PacketPubrec, PacketID: id})
	case need > 0:
		id := binary.BigEndian.Uint16(s.buf[header:])
		s.observer.OnRelease(s.info, qos2.Release{PacketID: id},
			qos2.Ack{Type: qos2.PacketPubcomp, PacketID: id})
	}

	if len(s.buf) >= total {
		s.buf = append(s.buf[:0], s.buf[total:]...)
		return true
	}
	s.skip = total - len(s.buf)
	s.buf = s.buf[:0]
	return false
}

func (s *frameScanner) disable() {
	s.disabled = true
	s.buf = nil
	s.skip = 0
}

// decodeRemainingLength decodes the MQTT variable-length integer at the
// start of b. complete is false when b ends mid-integer; ok is false when
// the integer is longer than four bytes.
func decodeRemainingLength(b []byte) (value, length int, complete, ok bool) {
	multiplier := 1
	for i := 0; i < maxLengthBytes; i++ {
		if i >= len(b) {
			return 0, 0, false, true
		}
		value += int(b[i]&0x7F) * multiplier
		if b[i]&0x80 == 0 {
			return value, i + 1, true, true
		}
		multiplier *= 128
	}
	return 0, 0, false, false
}
