// Package mqtt provides the MQTT session used by mqtt-cli.
//
// This package manages:
//   - Connecting to a broker (MQTT 3.1 or 3.1.1, plain TCP or TLS)
//   - Asynchronous publish and subscribe returning completion tokens
//   - Topic name and topic filter validation
//   - Observation of the inbound QoS 2 handshake for diagnostic logging
//   - Classification of connect failures into terse reasons
//
// # Architecture
//
// The Session interface is what the rest of the program depends on.
// PahoSession implements it with github.com/eclipse/paho.mqtt.golang:
//
//	executor → Session → paho client → observedConn → broker
//
// paho answers PUBREC and PUBCOMP internally. To make those steps visible,
// the network connection is opened by this package and wrapped so inbound
// QoS 2 PUBLISH and PUBREL frames are reported to a qos2.Observer.
// The wrapper never alters the bytes paho reads.
//
// # CLI Semantics
//
// A session never reconnects on its own. Connect fails fast on a wrong host,
// a refused connection, or a rejecting CONNACK, and the caller decides
// what to do.
//
// # Security Considerations
//
//   - TLS connections require at least TLS 1.2
//   - Passwords are never included in ConnectParams.String()
package mqtt
