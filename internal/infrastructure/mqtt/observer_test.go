package mqtt

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/nerrad567/mqtt-cli/internal/qos2"
)

// recordingObserver captures handshake callbacks.
type recordingObserver struct {
	mu       sync.Mutex
	events   []string
	publish  []qos2.Publish
	releases []qos2.Release
	acks     []qos2.Ack
}

func (r *recordingObserver) OnPublish(_ qos2.ClientInfo, p qos2.Publish, ack qos2.Ack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "publish")
	r.publish = append(r.publish, p)
	r.acks = append(r.acks, ack)
}

func (r *recordingObserver) OnRelease(_ qos2.ClientInfo, rel qos2.Release, ack qos2.Ack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "release")
	r.releases = append(r.releases, rel)
	r.acks = append(r.acks, ack)
}

func encodePublish(t *testing.T, topic string, id uint16, qos byte, payload []byte) []byte {
	t.Helper()
	pkt := packets.NewControlPacket(packets.Publish).(*packets.PublishPacket)
	pkt.TopicName = topic
	pkt.Qos = qos
	pkt.MessageID = id
	pkt.Payload = payload
	var buf bytes.Buffer
	if err := pkt.Write(&buf); err != nil {
		t.Fatalf("encoding PUBLISH: %v", err)
	}
	return buf.Bytes()
}

func encodePubrel(t *testing.T, id uint16) []byte {
	t.Helper()
	pkt := packets.NewControlPacket(packets.Pubrel).(*packets.PubrelPacket)
	pkt.MessageID = id
	var buf bytes.Buffer
	if err := pkt.Write(&buf); err != nil {
		t.Fatalf("encoding PUBREL: %v", err)
	}
	return buf.Bytes()
}

func encodePingresp(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := packets.NewControlPacket(packets.Pingresp).Write(&buf); err != nil {
		t.Fatalf("encoding PINGRESP: %v", err)
	}
	return buf.Bytes()
}

func handshakeStream(t *testing.T) []byte {
	var stream []byte
	stream = append(stream, encodePingresp(t)...)
	stream = append(stream, encodePublish(t, "ignored/qos1", 3, 1, []byte("one"))...)
	stream = append(stream, encodePublish(t, "sensors/temp", 7, 2, bytes.Repeat([]byte("x"), 300))...)
	stream = append(stream, encodePubrel(t, 7)...)
	stream = append(stream, encodePublish(t, "ignored/qos0", 0, 0, []byte("zero"))...)
	return stream
}

func assertHandshake(t *testing.T, obs *recordingObserver) {
	t.Helper()
	obs.mu.Lock()
	defer obs.mu.Unlock()

	if len(obs.events) != 2 || obs.events[0] != "publish" || obs.events[1] != "release" {
		t.Fatalf("events = %v, want [publish release]", obs.events)
	}
	p := obs.publish[0]
	if p.Topic != "sensors/temp" || p.PacketID != 7 || p.QoS != 2 || p.PayloadSize != 300 {
		t.Errorf("publish snapshot = %+v", p)
	}
	if obs.releases[0].PacketID != 7 {
		t.Errorf("release packet id = %d, want 7", obs.releases[0].PacketID)
	}
	if obs.acks[0].Type != qos2.PacketPubrec || obs.acks[1].Type != qos2.PacketPubcomp {
		t.Errorf("ack types = %v, %v", obs.acks[0].Type, obs.acks[1].Type)
	}
}

// =============================================================================
// Frame Scanner Tests
// =============================================================================

func TestFrameScanner_WholeStream(t *testing.T) {
	obs := &recordingObserver{}
	s := newFrameScanner(qos2.ClientInfo{ClientID: "c"}, obs)

	s.feed(handshakeStream(t))

	assertHandshake(t, obs)
}

func TestFrameScanner_ByteAtATime(t *testing.T) {
	obs := &recordingObserver{}
	s := newFrameScanner(qos2.ClientInfo{ClientID: "c"}, obs)

	for _, b := range handshakeStream(t) {
		s.feed([]byte{b})
	}

	assertHandshake(t, obs)
}

func TestFrameScanner_OddChunks(t *testing.T) {
	obs := &recordingObserver{}
	s := newFrameScanner(qos2.ClientInfo{ClientID: "c"}, obs)

	stream := handshakeStream(t)
	for len(stream) > 0 {
		n := min(7, len(stream))
		s.feed(stream[:n])
		stream = stream[n:]
	}

	assertHandshake(t, obs)
}

func TestFrameScanner_LargePayloadNotBuffered(t *testing.T) {
	obs := &recordingObserver{}
	s := newFrameScanner(qos2.ClientInfo{ClientID: "c"}, obs)

	frame := encodePublish(t, "big", 1, 2, bytes.Repeat([]byte("y"), 1<<16))
	s.feed(frame[:64])

	if len(s.buf) != 0 {
		t.Errorf("buffered %d bytes after header was decoded, want 0", len(s.buf))
	}
	if s.skip != len(frame)-64 {
		t.Errorf("skip = %d, want %d", s.skip, len(frame)-64)
	}

	s.feed(frame[64:])
	s.feed(encodePubrel(t, 1))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.events) != 2 {
		t.Errorf("events = %v, want publish and release", obs.events)
	}
}

func TestFrameScanner_MalformedDisables(t *testing.T) {
	obs := &recordingObserver{}
	s := newFrameScanner(qos2.ClientInfo{ClientID: "c"}, obs)

	// Five continuation bytes is not a valid remaining length.
	s.feed([]byte{0x30, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	s.feed(encodePubrel(t, 9))

	if !s.disabled {
		t.Error("expected scanner to be disabled")
	}
	if len(obs.events) != 0 {
		t.Errorf("events = %v, want none after malformed frame", obs.events)
	}
}

type panickingObserver struct{}

func (panickingObserver) OnPublish(qos2.ClientInfo, qos2.Publish, qos2.Ack) { panic("boom") }
func (panickingObserver) OnRelease(qos2.ClientInfo, qos2.Release, qos2.Ack) { panic("boom") }

func TestFrameScanner_ObserverPanicContained(t *testing.T) {
	s := newFrameScanner(qos2.ClientInfo{ClientID: "c"}, panickingObserver{})

	s.feed(encodePubrel(t, 1))

	if !s.disabled {
		t.Error("expected scanner to disable itself after a panic")
	}
}

func TestDecodeRemainingLength(t *testing.T) {
	tests := []struct {
		name         string
		in           []byte
		wantValue    int
		wantLength   int
		wantComplete bool
		wantOK       bool
	}{
		{"zero", []byte{0x00}, 0, 1, true, true},
		{"one byte max", []byte{0x7F}, 127, 1, true, true},
		{"two bytes", []byte{0x80, 0x01}, 128, 2, true, true},
		{"four bytes max", []byte{0xFF, 0xFF, 0xFF, 0x7F}, 268435455, 4, true, true},
		{"incomplete", []byte{0x80}, 0, 0, false, true},
		{"empty", []byte{}, 0, 0, false, true},
		{"too long", []byte{0x80, 0x80, 0x80, 0x80, 0x01}, 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, l, complete, ok := decodeRemainingLength(tt.in)
			if v != tt.wantValue || l != tt.wantLength || complete != tt.wantComplete || ok != tt.wantOK {
				t.Errorf("decodeRemainingLength(%v) = (%d, %d, %t, %t), want (%d, %d, %t, %t)",
					tt.in, v, l, complete, ok, tt.wantValue, tt.wantLength, tt.wantComplete, tt.wantOK)
			}
		})
	}
}

// =============================================================================
// Observed Connection Tests
// =============================================================================

func TestObservedConn_ReadsUnchanged(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	obs := &recordingObserver{}
	conn := newObservedConn(client, qos2.ClientInfo{ClientID: "c"}, obs)
	defer conn.Close()

	stream := handshakeStream(t)
	go func() {
		_, _ = server.Write(stream)
		_ = server.Close()
	}()

	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, stream) {
		t.Error("observed connection altered the byte stream")
	}

	assertHandshake(t, obs)
}
