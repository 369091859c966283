package mqtt

import (
	"fmt"
	"strings"
)

// Size limits from the MQTT 3.1.1 specification.
const (
	// maxTopicLength is the longest UTF-8 encoded topic in bytes.
	maxTopicLength = 65535

	// maxPayloadSize is the largest payload a PUBLISH can carry (the
	// maximum remaining length, 256 MB).
	maxPayloadSize = 268435455
)

// ValidateTopicName checks a topic used for PUBLISH.
//
// Topic names must be non-empty, at most 65535 bytes, and contain neither
// wildcards nor NUL characters.
//
// Returns:
//   - error: ErrInvalidTopic wrapped with the reason, or nil
func ValidateTopicName(topic string) error {
	if err := validateCommon(topic); err != nil {
		return err
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards are not allowed in a topic name: %q", ErrInvalidTopic, topic)
	}
	return nil
}

// ValidateTopicFilter checks a topic filter used for SUBSCRIBE.
//
// "+" must occupy a whole level. "#" must occupy a whole level and be the
// last one.
//
// Example:
//
//	ValidateTopicFilter("sensors/+/temperature") // nil
//	ValidateTopicFilter("sensors/#")             // nil
//	ValidateTopicFilter("sensors/#/x")           // ErrInvalidTopic
func ValidateTopicFilter(filter string) error {
	if err := validateCommon(filter); err != nil {
		return err
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("%w: '#' must be the last level: %q", ErrInvalidTopic, filter)
			}
		case level == "+":
		case strings.ContainsAny(level, "+#"):
			return fmt.Errorf("%w: wildcards must occupy a whole level: %q", ErrInvalidTopic, filter)
		}
	}
	return nil
}

func validateCommon(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}
	if len(topic) > maxTopicLength {
		return fmt.Errorf("%w: topic length %d exceeds maximum %d bytes", ErrInvalidTopic, len(topic), maxTopicLength)
	}
	if strings.ContainsRune(topic, 0) {
		return fmt.Errorf("%w: topic contains NUL character", ErrInvalidTopic)
	}
	return nil
}

// ValidateQoS checks that qos is 0, 1, or 2.
func ValidateQoS(qos int) error {
	if qos < 0 || qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}
