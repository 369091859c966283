package influxdb

import (
	"strconv"
	"unicode/utf8"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/mqtt"
)

// WriteMessage records a received MQTT message as a point stamped with
// the time of receipt.
//
// Point layout:
//   - tags: topic, qos
//   - fields: payload (text, at most MaxPayload bytes), size (bytes),
//     retained, truncated
//
// Returns:
//   - error: ErrSinkClosed after Close
func (s *Sink) WriteMessage(msg mqtt.Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}

	s.writer.WritePoint(s.point(msg))
	s.written.Add(1)
	return nil
}

func (s *Sink) point(msg mqtt.Message) *write.Point {
	payload, truncated := capPayload(msg.Payload, s.maxPayload)
	return write.NewPoint(
		s.measurement,
		map[string]string{
			"topic": msg.Topic,
			"qos":   strconv.Itoa(int(msg.QoS)),
		},
		map[string]interface{}{
			"payload":   payload,
			"size":      len(msg.Payload),
			"retained":  msg.Retain,
			"truncated": truncated,
		},
		s.now(),
	)
}

// capPayload returns payload as text cut to at most limit bytes. A UTF-8
// sequence split by the cut is dropped whole; other bytes pass unchanged.
func capPayload(payload []byte, limit int) (string, bool) {
	if len(payload) <= limit {
		return string(payload), false
	}
	cut := payload[:limit]
	start := len(cut) - 1
	for start > 0 && len(cut)-start < utf8.UTFMax && !utf8.RuneStart(cut[start]) {
		start--
	}
	if start >= 0 && !utf8.FullRune(cut[start:]) {
		cut = cut[:start]
	}
	return string(cut), true
}
